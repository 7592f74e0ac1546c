package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewStreamSession(t *testing.T) {
	id := uuid.New()
	started := time.Date(2025, 3, 14, 11, 15, 0, 0, time.FixedZone("CET", 3600))

	s := NewStreamSession(id, "C1", "10.0.0.7", 2, started)

	assert.Equal(t, id, s.ID)
	assert.Equal(t, "C1", s.ChannelID)
	assert.Equal(t, SessionStateStreaming, s.State)
	assert.Equal(t, 2, s.Programmes)
	assert.Equal(t, time.UTC, s.StartedAt.Location())
	assert.True(t, s.StartedAt.Equal(started))
	assert.True(t, s.Running())
}

func TestStreamSession_Duration(t *testing.T) {
	started := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	s := NewStreamSession(uuid.New(), "C1", "", 0, started)

	assert.Equal(t, 5*time.Minute, s.Duration(started.Add(5*time.Minute)))

	ended := started.Add(time.Hour)
	s.EndedAt = &ended
	assert.False(t, s.Running())
	assert.Equal(t, time.Hour, s.Duration(started.Add(3*time.Hour)))
}
