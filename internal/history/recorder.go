// Package history persists the course of every stream so it can be listed
// after the fact.
package history

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/epgcast/internal/db"
	"github.com/stwalsh4118/epgcast/internal/logger"
	"github.com/stwalsh4118/epgcast/internal/models"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

const (
	defaultWriteTimeout = 2 * time.Second
	defaultQueueSize    = 256
)

// Store is the persistence the recorder writes to
type Store interface {
	Create(ctx context.Context, session *models.StreamSession) error
	AddStep(ctx context.Context, step *models.StreamStep) error
	Finish(ctx context.Context, session *models.StreamSession) error
}

// write is one queued history write
type write struct {
	what      string
	sessionID uuid.UUID
	parent    context.Context
	apply     func(ctx context.Context) error
}

// Recorder writes stream history to a Store from a single background
// goroutine, so a slow database never stalls a stream between steps. Writes
// keep their order. When the queue is full new writes are dropped; failed
// writes are logged and otherwise ignored.
type Recorder struct {
	store   Store
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan write
	done    chan struct{}
	dropped atomic.Int64
}

var _ streaming.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder backed by store and starts its writer.
// Close must be called to flush pending writes.
func NewRecorder(store Store) *Recorder {
	return newRecorder(store, defaultWriteTimeout, defaultQueueSize)
}

func newRecorder(store Store, timeout time.Duration, queueSize int) *Recorder {
	r := &Recorder{
		store:   store,
		timeout: timeout,
		queue:   make(chan write, queueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for w := range r.queue {
		ctx, cancel := context.WithTimeout(w.parent, r.timeout)
		err := w.apply(ctx)
		cancel()
		if err != nil {
			r.logFailure(w, err)
		}
	}
}

func (r *Recorder) logFailure(w write, err error) {
	log := logger.Component("history")
	switch {
	case db.IsForeignKey(err):
		// the session row itself was never written
		log.Debug().Err(err).Str("session_id", w.sessionID.String()).Msgf("Dropped %s of unrecorded session", w.what)
	case db.IsDuplicate(err):
		log.Debug().Err(err).Str("session_id", w.sessionID.String()).Msgf("Ignored repeated %s", w.what)
	default:
		log.Warn().Err(err).Str("session_id", w.sessionID.String()).Msgf("Failed to record %s", w.what)
	}
}

func (r *Recorder) enqueue(ctx context.Context, w write) {
	w.parent = context.WithoutCancel(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- w:
	default:
		n := r.dropped.Add(1)
		logger.Component("history").Warn().
			Str("session_id", w.sessionID.String()).
			Int64("dropped", n).
			Msgf("History queue full, dropped %s", w.what)
	}
}

// Dropped returns how many writes were discarded because the queue was full
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting writes and waits until queued ones are stored or ctx ends
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionStarted queues the session record
func (r *Recorder) SessionStarted(ctx context.Context, info streaming.SessionInfo) {
	session := models.NewStreamSession(info.SessionID, info.ChannelID, info.ClientAddr, info.Programmes, info.StartedAt)
	r.enqueue(ctx, write{
		what:      "session start",
		sessionID: info.SessionID,
		apply: func(ctx context.Context) error {
			return r.store.Create(ctx, session)
		},
	})
}

// StepFinished queues a step of the session
func (r *Recorder) StepFinished(ctx context.Context, report streaming.StepReport) {
	step := stepFromReport(report)
	r.enqueue(ctx, write{
		what:      fmt.Sprintf("step %d", report.Sequence),
		sessionID: report.SessionID,
		apply: func(ctx context.Context) error {
			return r.store.AddStep(ctx, step)
		},
	})
}

// SessionEnded queues the final state and totals
func (r *Recorder) SessionEnded(ctx context.Context, summary streaming.Summary) {
	ended := summary.EndedAt.UTC()
	session := &models.StreamSession{
		ID:        summary.SessionID,
		ChannelID: summary.ChannelID,
		State:     summary.State,
		StepCount: summary.Steps,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Bytes:     summary.Bytes,
		StartedAt: summary.StartedAt.UTC(),
		EndedAt:   &ended,
	}
	r.enqueue(ctx, write{
		what:      "session end",
		sessionID: summary.SessionID,
		apply: func(ctx context.Context) error {
			return r.store.Finish(ctx, session)
		},
	})
}

func stepFromReport(report streaming.StepReport) *models.StreamStep {
	return &models.StreamStep{
		SessionID:       report.SessionID,
		Sequence:        report.Sequence,
		Kind:            report.Kind,
		ProgrammeIndex:  report.Index,
		Title:           report.Title,
		Identifier:      report.Identifier,
		Locator:         report.Locator,
		OffsetSeconds:   report.OffsetSeconds,
		DurationSeconds: report.DurationSeconds,
		Outcome:         string(report.Outcome),
		Reason:          report.Reason,
		Bytes:           report.Bytes,
		StartedAt:       report.StartedAt.UTC(),
		FinishedAt:      report.FinishedAt.UTC(),
	}
}

// Compile-time check that the gorm repository satisfies Store
var _ Store = (*db.SessionRepository)(nil)
