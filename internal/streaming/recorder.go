package streaming

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionInfo describes a stream when it starts
type SessionInfo struct {
	SessionID  uuid.UUID
	ChannelID  string
	ClientAddr string
	Programmes int
	StartedAt  time.Time
}

// StepReport describes one step once it has ended or been skipped
type StepReport struct {
	SessionID       uuid.UUID
	Sequence        int
	Kind            string
	Index           int
	Title           string
	Identifier      string
	Locator         string
	OffsetSeconds   int64
	DurationSeconds int64
	Outcome         Outcome
	Reason          string
	Bytes           int64
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Summary describes a stream once it has ended
type Summary struct {
	SessionID uuid.UUID
	ChannelID string
	State     string // finished or aborted
	Steps     int
	Completed int
	Failed    int
	Skipped   int
	Bytes     int64
	StartedAt time.Time
	EndedAt   time.Time
}

// Recorder keeps a history of streams. Implementations must not block the
// stream for long and their failures never affect it.
type Recorder interface {
	SessionStarted(ctx context.Context, info SessionInfo)
	StepFinished(ctx context.Context, report StepReport)
	SessionEnded(ctx context.Context, summary Summary)
}

// NopRecorder records nothing
type NopRecorder struct{}

// SessionStarted implements Recorder
func (NopRecorder) SessionStarted(context.Context, SessionInfo) {}

// StepFinished implements Recorder
func (NopRecorder) StepFinished(context.Context, StepReport) {}

// SessionEnded implements Recorder
func (NopRecorder) SessionEnded(context.Context, Summary) {}
