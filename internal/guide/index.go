package guide

import (
	"fmt"
	"sort"
	"time"
)

// Channel is a channel declared by the guide
type Channel struct {
	ID          string
	DisplayName string
}

// Name returns the display name, falling back to the id
func (c Channel) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ID
}

// Programme is one scheduled interval on a channel. Start and Stop are UTC
// and Start is always before Stop.
type Programme struct {
	ChannelID   string
	Start       time.Time
	Stop        time.Time
	Title       string
	Description string
}

// Duration returns the nominal length of the programme
func (p Programme) Duration() time.Duration {
	return p.Stop.Sub(p.Start)
}

// InProgress reports whether the programme is airing at now
func (p Programme) InProgress(now time.Time) bool {
	return !p.Start.After(now) && now.Before(p.Stop)
}

// Guide is a read-only, in-memory view over one parsed guide document
type Guide struct {
	channels   []Channel
	channelSet map[string]struct{}
	programmes []Programme
}

// New builds a Guide from already-parsed channels and programmes.
// Input order is preserved.
func New(channels []Channel, programmes []Programme) *Guide {
	set := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		set[ch.ID] = struct{}{}
	}
	return &Guide{
		channels:   channels,
		channelSet: set,
		programmes: programmes,
	}
}

// Channels returns the declared channels in document order
func (g *Guide) Channels() []Channel {
	out := make([]Channel, len(g.channels))
	copy(out, g.channels)
	return out
}

// HasChannel reports whether the guide declares channelID
func (g *Guide) HasChannel(channelID string) bool {
	_, ok := g.channelSet[channelID]
	return ok
}

// ProgrammeCount returns the number of programmes across all channels
func (g *Guide) ProgrammeCount() int {
	return len(g.programmes)
}

// TimelineFor returns the programmes of channelID that have not yet ended at now,
// sorted by start time. Programmes sharing a start time keep their document order.
// An unknown channel yields ErrChannelNotFound; a known channel with nothing
// scheduled yields an empty, non-nil slice.
func (g *Guide) TimelineFor(channelID string, now time.Time) ([]Programme, error) {
	if !g.HasChannel(channelID) {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	timeline := make([]Programme, 0)
	for _, p := range g.programmes {
		if p.ChannelID != channelID {
			continue
		}
		if !p.Stop.After(now) {
			continue
		}
		timeline = append(timeline, p)
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Start.Before(timeline[j].Start)
	})

	return timeline, nil
}
