package models

import (
	"time"

	"github.com/google/uuid"
)

// Session states as stored in history
const (
	SessionStateStreaming = "streaming"
	SessionStateFinished  = "finished"
	SessionStateAborted   = "aborted"
)

// Step outcomes as stored in history
const (
	StepOutcomeCompleted = "completed"
	StepOutcomeFailed    = "failed"
	StepOutcomeAborted   = "aborted"
	StepOutcomeSkipped   = "skipped"
)

// StreamSession is the recorded history of one client stream
type StreamSession struct {
	ID         uuid.UUID    `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID  string       `json:"channel_id" gorm:"type:text;not null;index;column:channel_id"`
	ClientAddr string       `json:"client_addr" gorm:"type:text;not null;default:'';column:client_addr"`
	State      string       `json:"state" gorm:"type:text;not null;column:state"`
	Programmes int          `json:"programmes" gorm:"type:integer;not null;default:0;column:programmes"`
	StepCount  int          `json:"step_count" gorm:"type:integer;not null;default:0;column:step_count"`
	Completed  int          `json:"completed" gorm:"type:integer;not null;default:0;column:completed"`
	Failed     int          `json:"failed" gorm:"type:integer;not null;default:0;column:failed"`
	Skipped    int          `json:"skipped" gorm:"type:integer;not null;default:0;column:skipped"`
	Bytes      int64        `json:"bytes" gorm:"type:integer;not null;default:0;column:bytes"`
	StartedAt  time.Time    `json:"started_at" gorm:"type:datetime;not null;column:started_at"`
	EndedAt    *time.Time   `json:"ended_at,omitempty" gorm:"type:datetime;column:ended_at"`
	Steps      []StreamStep `json:"steps,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// NewStreamSession creates a session record in the streaming state
func NewStreamSession(id uuid.UUID, channelID, clientAddr string, programmes int, startedAt time.Time) *StreamSession {
	return &StreamSession{
		ID:         id,
		ChannelID:  channelID,
		ClientAddr: clientAddr,
		State:      SessionStateStreaming,
		Programmes: programmes,
		StartedAt:  startedAt.UTC(),
	}
}

// Running reports whether the session has not been closed yet
func (s *StreamSession) Running() bool {
	return s.EndedAt == nil
}

// Duration returns how long the session ran, or has been running as of now
func (s *StreamSession) Duration(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// StreamStep is one played or skipped step of a session
type StreamStep struct {
	ID              uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	SessionID       uuid.UUID `json:"session_id" gorm:"type:text;not null;index;column:session_id"`
	Sequence        int       `json:"sequence" gorm:"type:integer;not null;column:sequence"`
	Kind            string    `json:"kind" gorm:"type:text;not null;column:kind"`
	ProgrammeIndex  int       `json:"programme_index" gorm:"type:integer;not null;column:programme_index"`
	Title           string    `json:"title" gorm:"type:text;not null;default:'';column:title"`
	Identifier      string    `json:"identifier,omitempty" gorm:"type:text;not null;default:'';column:identifier"`
	Locator         string    `json:"locator,omitempty" gorm:"type:text;not null;default:'';column:locator"`
	OffsetSeconds   int64     `json:"offset_seconds" gorm:"type:integer;not null;default:0;column:offset_seconds"`
	DurationSeconds int64     `json:"duration_seconds" gorm:"type:integer;not null;default:0;column:duration_seconds"`
	Outcome         string    `json:"outcome" gorm:"type:text;not null;column:outcome"`
	Reason          string    `json:"reason,omitempty" gorm:"type:text;not null;default:'';column:reason"`
	Bytes           int64     `json:"bytes" gorm:"type:integer;not null;default:0;column:bytes"`
	StartedAt       time.Time `json:"started_at" gorm:"type:datetime;not null;column:started_at"`
	FinishedAt      time.Time `json:"finished_at" gorm:"type:datetime;not null;column:finished_at"`
}
