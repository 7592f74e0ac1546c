package streaming

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stwalsh4118/epgcast/internal/timeline"
)

// MediaProducer is one external media process feeding a single step
type MediaProducer interface {
	// Start launches the producer and returns its output stream
	Start(ctx context.Context) (io.ReadCloser, error)
	// Cancel stops a running producer. It is safe to call more than once,
	// before Start, and after the producer has exited.
	Cancel() error
	// Wait blocks until the producer has exited. It reports abnormal exits
	// that were not caused by Cancel.
	Wait() error
}

// ProducerFactory builds the producer for a step
type ProducerFactory interface {
	ProducerFor(step StreamStep) (MediaProducer, error)
}

// FFmpegFactory produces copy-with-seek processes for programmes and
// colour-plus-silence processes for gaps
type FFmpegFactory struct {
	cfg Config
}

// NewFFmpegFactory creates a factory. Zero values fall back to DefaultConfig.
func NewFFmpegFactory(cfg Config) *FFmpegFactory {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaultFFmpegPath
	}
	if cfg.Filler == (FillerConfig{}) {
		cfg.Filler = DefaultConfig().Filler
	}
	return &FFmpegFactory{cfg: cfg}
}

// ProducerFor returns an unstarted producer for step
func (f *FFmpegFactory) ProducerFor(step StreamStep) (MediaProducer, error) {
	cmd, err := f.CommandFor(step)
	if err != nil {
		return nil, err
	}
	return &ffmpegProducer{binary: f.cfg.FFmpegPath, cmd: cmd}, nil
}

// CommandFor builds the FFmpeg invocation for step
func (f *FFmpegFactory) CommandFor(step StreamStep) (*FFmpegCommand, error) {
	switch step.Kind {
	case timeline.StepGap:
		return BuildFillerCommand(FillerParams{
			DurationSeconds: step.DurationSeconds,
			Filler:          f.cfg.Filler,
		})
	case timeline.StepProgramme:
		if step.Source == nil {
			return nil, ErrEmptyLocator
		}
		return BuildCopyCommand(CopyParams{
			Locator:       step.Source.Locator,
			OffsetSeconds: step.OffsetSeconds,
		})
	default:
		return nil, fmt.Errorf("%w: unknown step kind %q", ErrInvalidCommand, step.Kind)
	}
}

type ffmpegProducer struct {
	binary string
	cmd    *FFmpegCommand

	mu        sync.Mutex
	proc      *launchedProcess
	cancelled bool
}

func (p *ffmpegProducer) Start(ctx context.Context) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proc != nil {
		return nil, ErrProducerStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proc, err := launchFFmpeg(p.binary, p.cmd)
	if err != nil {
		return nil, err
	}
	p.proc = proc
	return proc.stdout, nil
}

func (p *ffmpegProducer) Cancel() error {
	p.mu.Lock()
	proc := p.proc
	p.cancelled = true
	p.mu.Unlock()

	if proc == nil {
		return nil
	}
	return terminateProcess(proc.cmd.Process, proc.exited)
}

func (p *ffmpegProducer) Wait() error {
	p.mu.Lock()
	proc := p.proc
	p.mu.Unlock()

	if proc == nil {
		return nil
	}

	err := proc.wait()

	p.mu.Lock()
	cancelled := p.cancelled
	p.mu.Unlock()

	if err == nil || cancelled {
		return nil
	}

	tail := proc.tail.String()
	if tail == "" {
		return NewStreamError(ErrorTypeTransferFailed, "FFmpeg exited abnormally", err)
	}
	parsed := ParseFFmpegError(tail)
	return NewStreamError(parsed.Type, parsed.Message, fmt.Errorf("%w: %s", err, tail))
}
