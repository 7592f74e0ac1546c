package streaming

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActiveStream is a snapshot of one stream currently writing to a client
type ActiveStream struct {
	SessionID   uuid.UUID `json:"session_id"`
	ChannelID   string    `json:"channel_id"`
	ClientAddr  string    `json:"client_addr"`
	StartedAt   time.Time `json:"started_at"`
	StepKind    string    `json:"step_kind,omitempty"`
	StepIndex   int       `json:"step_index"`
	StepTitle   string    `json:"step_title,omitempty"`
	StepsPlayed int       `json:"steps_played"`
	Bytes       int64     `json:"bytes"`
}

// Registry tracks the streams that are currently running (thread-safe).
// Each stream owns its own entry; nothing in it is shared between streams.
type Registry struct {
	streams map[uuid.UUID]*ActiveStream
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		streams: make(map[uuid.UUID]*ActiveStream),
	}
}

// Add stores a stream
func (r *Registry) Add(stream ActiveStream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[stream.SessionID] = &stream
}

// Update applies fn to the stored stream, if present
func (r *Registry) Update(sessionID uuid.UUID, fn func(*ActiveStream)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[sessionID]; ok {
		fn(s)
	}
}

// Get retrieves a copy of a stream by session ID
func (r *Registry) Get(sessionID uuid.UUID) (ActiveStream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[sessionID]
	if !ok {
		return ActiveStream{}, false
	}
	return *s, true
}

// Delete removes a stream
func (r *Registry) Delete(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, sessionID)
}

// List returns copies of all running streams, oldest first
func (r *Registry) List() []ActiveStream {
	r.mu.RLock()
	defer r.mu.RUnlock()

	streams := make([]ActiveStream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, *s)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].StartedAt.Before(streams[j].StartedAt)
	})
	return streams
}

// Len returns the number of running streams
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}
