// Package timeline walks a channel's programme timeline step by step,
// deciding where to start, how far to seek into a programme already on air,
// and where filler is needed between programmes.
package timeline

import (
	"fmt"
	"time"

	"github.com/stwalsh4118/epgcast/internal/guide"
)

// Walker is the per-request timeline state machine. It is not safe for
// concurrent use; each streaming request owns exactly one.
type Walker struct {
	timeline []guide.Programme
	state    State
	cursor   TimelineCursor
	current  Step
	observer func(Transition)
}

// NewWalker returns an idle walker
func NewWalker() *Walker {
	return &Walker{state: StateIdle}
}

// Observe registers fn to be called on every state change
func (w *Walker) Observe(fn func(Transition)) {
	w.observer = fn
}

// State returns the current state
func (w *Walker) State() State {
	return w.state
}

// Cursor returns a copy of the cursor
func (w *Walker) Cursor() TimelineCursor {
	return w.cursor
}

// Len returns the number of programmes in the loaded timeline
func (w *Walker) Len() int {
	return len(w.timeline)
}

// Done reports whether the walker reached a terminal state
func (w *Walker) Done() bool {
	return w.state == StateFinished || w.state == StateAborted
}

// InitialIndex returns the index of the first in-progress programme, or the
// first upcoming one when nothing is on air. It returns -1 when no programme
// ends after now.
func InitialIndex(timeline []guide.Programme, now time.Time) int {
	for i, p := range timeline {
		if p.InProgress(now) {
			return i
		}
	}
	for i, p := range timeline {
		if p.Start.After(now) {
			return i
		}
	}
	return -1
}

// OffsetAt returns the seek into p for a step beginning at now, in whole
// seconds. Programmes not on air at now start from the beginning.
func OffsetAt(p guide.Programme, now time.Time) int64 {
	if !p.InProgress(now) {
		return 0
	}
	return int64(now.Sub(p.Start) / time.Second)
}

// GapSeconds returns the whole seconds between the end of prev and the start
// of next. Overlapping or back-to-back programmes yield zero.
func GapSeconds(prev, next guide.Programme) int64 {
	gap := int64(next.Start.Sub(prev.Stop) / time.Second)
	if gap < 0 {
		return 0
	}
	return gap
}

// Load positions the walker on timeline. An empty timeline, or one with
// nothing left to air, finishes the walk immediately.
func (w *Walker) Load(timeline []guide.Programme, now time.Time) error {
	if w.state != StateIdle {
		return w.invalid("load")
	}

	w.timeline = make([]guide.Programme, len(timeline))
	copy(w.timeline, timeline)
	w.cursor = TimelineCursor{Now: now}

	idx := InitialIndex(w.timeline, now)
	if idx < 0 {
		w.cursor.Index = len(w.timeline)
		w.transition(StateFinished)
		return nil
	}

	w.cursor.Index = idx
	w.transition(StatePositioned)
	return nil
}

// Current returns the step under the cursor. While positioned the offset is
// not yet known; once streaming it is the frozen offset. ok is false in
// every other state.
func (w *Walker) Current() (Step, bool) {
	switch w.state {
	case StatePositioned:
		return w.pending(), true
	case StateStreaming:
		return w.current, true
	default:
		return Step{}, false
	}
}

// pending describes the step the cursor is positioned on
func (w *Walker) pending() Step {
	if w.cursor.GapSeconds > 0 {
		return Step{
			Kind:            StepGap,
			Index:           w.cursor.Index,
			DurationSeconds: w.cursor.GapSeconds,
		}
	}
	p := w.timeline[w.cursor.Index]
	return Step{
		Kind:            StepProgramme,
		Index:           w.cursor.Index,
		Programme:       p,
		DurationSeconds: int64(p.Duration() / time.Second),
	}
}

// Begin starts streaming the positioned step. A programme's offset is
// computed here, from now, and not again for the life of the step.
func (w *Walker) Begin(now time.Time) (Step, error) {
	if w.state != StatePositioned {
		return Step{}, w.invalid("begin")
	}

	step := w.pending()
	if step.Kind == StepProgramme {
		step.OffsetSeconds = OffsetAt(step.Programme, now)
	}

	w.cursor.Now = now
	w.cursor.OffsetSeconds = step.OffsetSeconds
	w.current = step
	w.transition(StateStreaming)
	return step, nil
}

// Skip passes over the positioned step without streaming it. Skipped
// programmes leave no filler behind.
func (w *Walker) Skip(now time.Time) error {
	if w.state != StatePositioned {
		return w.invalid("skip")
	}
	w.current = w.pending()
	w.advance(now, false)
	return nil
}

// Complete ends the streaming step normally. After a programme, any gap
// before the next programme is queued as filler.
func (w *Walker) Complete(now time.Time) error {
	if w.state != StateStreaming {
		return w.invalid("complete")
	}
	w.advance(now, true)
	return nil
}

// Fail ends the streaming step after a transfer failure. The walk continues
// with the next programme and no filler is queued.
func (w *Walker) Fail(now time.Time) error {
	if w.state != StateStreaming {
		return w.invalid("fail")
	}
	w.advance(now, false)
	return nil
}

// Abort stops the walk for good
func (w *Walker) Abort() {
	if w.state == StateAborted {
		return
	}
	w.transition(StateAborted)
}

func (w *Walker) advance(now time.Time, completed bool) {
	w.transition(StateAdvancing)

	w.cursor.Now = now
	w.cursor.OffsetSeconds = 0

	if w.current.Kind == StepGap {
		w.cursor.GapSeconds = 0
	} else {
		w.cursor.Index++
		w.cursor.GapSeconds = 0
		if completed && w.cursor.Index < len(w.timeline) {
			w.cursor.GapSeconds = GapSeconds(w.current.Programme, w.timeline[w.cursor.Index])
		}
	}
	w.current = Step{}

	if w.cursor.Index >= len(w.timeline) {
		w.transition(StateFinished)
		return
	}
	w.transition(StatePositioned)
}

func (w *Walker) transition(to State) {
	from := w.state
	w.state = to
	if w.observer != nil {
		w.observer(Transition{From: from, To: to, Step: w.current})
	}
}

func (w *Walker) invalid(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, w.state)
}
