package streaming

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"syscall"
)

// fakeProducer serves data through an in-memory pipe
type fakeProducer struct {
	data     []byte
	startErr error
	waitErr  error
	block    bool // hold the output open until cancelled

	started   atomic.Bool
	cancelled atomic.Bool
	done      chan struct{}
	exited    chan struct{}
	once      sync.Once
}

func newFakeProducer(data string) *fakeProducer {
	return &fakeProducer{
		data: []byte(data),
		done: make(chan struct{}),
	}
}

func (p *fakeProducer) Start(context.Context) (io.ReadCloser, error) {
	if p.startErr != nil {
		return nil, p.startErr
	}
	p.started.Store(true)

	pr, pw := io.Pipe()
	p.exited = make(chan struct{})
	go func() {
		defer close(p.exited)
		for off := 0; off < len(p.data); off += 3 {
			end := off + 3
			if end > len(p.data) {
				end = len(p.data)
			}
			if _, err := pw.Write(p.data[off:end]); err != nil {
				return
			}
		}
		if p.block {
			<-p.done
		}
		_ = pw.Close()
	}()
	return pr, nil
}

func (p *fakeProducer) Cancel() error {
	p.cancelled.Store(true)
	p.once.Do(func() {
		close(p.done)
	})
	return nil
}

func (p *fakeProducer) Wait() error {
	if p.exited != nil {
		<-p.exited
	}
	if p.cancelled.Load() {
		return nil
	}
	return p.waitErr
}

// fakeFactory hands out producers in order and records the steps it saw
type fakeFactory struct {
	mu        sync.Mutex
	producers []MediaProducer
	steps     []StreamStep
	err       error
}

func (f *fakeFactory) ProducerFor(step StreamStep) (MediaProducer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, step)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.producers) == 0 {
		return newFakeProducer(""), nil
	}
	p := f.producers[0]
	f.producers = f.producers[1:]
	return p, nil
}

// failingWriter accepts okWrites writes and then fails like a reset connection
type failingWriter struct {
	okWrites int
	writes   int
	written  []byte
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.okWrites {
		return 0, syscall.ECONNRESET
	}
	w.writes++
	w.written = append(w.written, p...)
	return len(p), nil
}

// chunkRecorder records the size of every write
type chunkRecorder struct {
	sizes []int
	data  []byte
}

func (w *chunkRecorder) Write(p []byte) (int, error) {
	w.sizes = append(w.sizes, len(p))
	w.data = append(w.data, p...)
	return len(p), nil
}
