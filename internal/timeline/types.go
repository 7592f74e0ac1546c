package timeline

import (
	"time"

	"github.com/stwalsh4118/epgcast/internal/guide"
)

// State is the walker's position in its lifecycle
type State string

const (
	// StateIdle means no timeline has been loaded yet
	StateIdle State = "idle"

	// StatePositioned means the cursor points at the next step to stream
	StatePositioned State = "positioned"

	// StateStreaming means the current step has begun and its offset is frozen
	StateStreaming State = "streaming"

	// StateAdvancing is the transient state between finishing one step and
	// positioning on the next
	StateAdvancing State = "advancing"

	// StateFinished means the timeline is exhausted
	StateFinished State = "finished"

	// StateAborted means the client went away and no further steps run
	StateAborted State = "aborted"
)

// StepKind tags a Step as a real programme or synthetic filler
type StepKind string

const (
	// StepProgramme streams a resolved programme
	StepProgramme StepKind = "programme"

	// StepGap streams filler for a hole in the schedule
	StepGap StepKind = "gap"
)

// Step is one unit of continuous output.
type Step struct {
	Kind StepKind `json:"kind"`

	// Index is the timeline index of the programme, or of the programme the
	// gap precedes
	Index int `json:"index"`

	// Programme is zero for gap steps
	Programme guide.Programme `json:"-"`

	// OffsetSeconds is the seek into the programme, set when the step begins
	OffsetSeconds int64 `json:"offset_seconds"`

	// DurationSeconds is the gap length for gap steps and the nominal
	// programme length for programme steps
	DurationSeconds int64 `json:"duration_seconds"`
}

// TimelineCursor is the mutable per-request walk position
//
//nolint:revive // Timeline prefix reads better at call sites in other packages
type TimelineCursor struct {
	// Index into the timeline of the current or next programme
	Index int

	// Now is the wall-clock reference of the last transition
	Now time.Time

	// OffsetSeconds is the frozen seek of the step being streamed
	OffsetSeconds int64

	// GapSeconds is filler still owed before the programme at Index
	GapSeconds int64
}

// Transition is reported to observers on every state change
type Transition struct {
	From State
	To   State
	Step Step
}
