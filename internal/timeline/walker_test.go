package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/epgcast/internal/guide"
)

// at returns a UTC instant on a fixed test day
func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, time.UTC)
}

func programme(start, stop time.Time, desc string) guide.Programme {
	return guide.Programme{
		ChannelID:   "C1",
		Start:       start,
		Stop:        stop,
		Title:       desc,
		Description: desc,
	}
}

// exampleTimeline is two programmes with a five minute hole between them
func exampleTimeline() []guide.Programme {
	return []guide.Programme{
		programme(at(10, 0), at(10, 30), "desc IMDB: tt0000001"),
		programme(at(10, 35), at(11, 0), "desc IMDB: tt0000002"),
	}
}

func TestInitialIndex(t *testing.T) {
	timeline := exampleTimeline()

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before everything", at(9, 0), 0},
		{"at first start", at(10, 0), 0},
		{"in first", at(10, 15), 0},
		{"in the hole", at(10, 32), 1},
		{"in second", at(10, 40), 1},
		{"after everything", at(11, 0), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InitialIndex(timeline, tt.now))
		})
	}
}

func TestInitialIndex_PrefersInProgress(t *testing.T) {
	// overlapping input: the upcoming programme is listed first
	timeline := []guide.Programme{
		programme(at(10, 20), at(10, 50), "upcoming"),
		programme(at(10, 0), at(10, 30), "on air"),
	}
	assert.Equal(t, 1, InitialIndex(timeline, at(10, 15)))
}

func TestOffsetAt(t *testing.T) {
	p := programme(at(10, 0), at(10, 30), "")

	assert.Equal(t, int64(900), OffsetAt(p, at(10, 15)))
	assert.Equal(t, int64(0), OffsetAt(p, at(10, 0)))
	assert.Equal(t, int64(0), OffsetAt(p, at(9, 0)))
	assert.Equal(t, int64(0), OffsetAt(p, at(10, 30)), "a programme reached after its stop plays from the start")
	assert.Equal(t, int64(61), OffsetAt(p, at(10, 1).Add(1999*time.Millisecond)), "offset is floored to whole seconds")
}

func TestGapSeconds(t *testing.T) {
	tests := []struct {
		name string
		prev guide.Programme
		next guide.Programme
		want int64
	}{
		{"hole", programme(at(10, 0), at(10, 30), ""), programme(at(10, 35), at(11, 0), ""), 300},
		{"back to back", programme(at(10, 0), at(10, 30), ""), programme(at(10, 30), at(11, 0), ""), 0},
		{"overlap", programme(at(10, 0), at(10, 30), ""), programme(at(10, 20), at(11, 0), ""), 0},
		{"sub second", programme(at(10, 0), at(10, 30), ""), programme(at(10, 30).Add(500*time.Millisecond), at(11, 0), ""), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GapSeconds(tt.prev, tt.next))
		})
	}
}

func TestWalker_InProgressScenario(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(10, 15)))
	assert.Equal(t, StatePositioned, w.State())
	assert.Equal(t, 2, w.Len())

	step, err := w.Begin(at(10, 15))
	require.NoError(t, err)
	assert.Equal(t, StepProgramme, step.Kind)
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, int64(900), step.OffsetSeconds)
	assert.Equal(t, int64(1800), step.DurationSeconds)

	require.NoError(t, w.Complete(at(10, 30)))
	gap, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, StepGap, gap.Kind)
	assert.Equal(t, int64(300), gap.DurationSeconds)
	assert.Equal(t, 1, gap.Index)

	gap, err = w.Begin(at(10, 30))
	require.NoError(t, err)
	assert.Equal(t, int64(300), gap.DurationSeconds)
	require.NoError(t, w.Complete(at(10, 35)))

	step, err = w.Begin(at(10, 35))
	require.NoError(t, err)
	assert.Equal(t, StepProgramme, step.Kind)
	assert.Equal(t, 1, step.Index)
	assert.Equal(t, int64(0), step.OffsetSeconds)

	require.NoError(t, w.Complete(at(11, 0)))
	assert.Equal(t, StateFinished, w.State())
	assert.True(t, w.Done())
}

func TestWalker_UpcomingScenario(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(9, 0)))

	step, err := w.Begin(at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, int64(0), step.OffsetSeconds)
}

func TestWalker_OffsetFrozen(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(10, 0)))

	step, err := w.Begin(at(10, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(900), step.OffsetSeconds)

	_, err = w.Begin(at(10, 25))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, int64(900), current.OffsetSeconds)
	assert.Equal(t, int64(900), w.Cursor().OffsetSeconds)
}

func TestWalker_SkipDoesNotHalt(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(10, 15)))

	require.NoError(t, w.Skip(at(10, 15)))
	assert.Equal(t, StatePositioned, w.State())

	step, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, StepProgramme, step.Kind, "a skipped programme leaves no filler")
	assert.Equal(t, 1, step.Index)

	require.NoError(t, w.Skip(at(10, 16)))
	assert.Equal(t, StateFinished, w.State())
}

func TestWalker_FailAdvancesWithoutGap(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(10, 15)))

	_, err := w.Begin(at(10, 15))
	require.NoError(t, err)
	require.NoError(t, w.Fail(at(10, 16)))

	step, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, StepProgramme, step.Kind)
	assert.Equal(t, 1, step.Index)
	assert.Equal(t, at(10, 16), w.Cursor().Now)
}

func TestWalker_FailedGapMovesOn(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(10, 15)))

	_, err := w.Begin(at(10, 15))
	require.NoError(t, err)
	require.NoError(t, w.Complete(at(10, 30)))

	gap, err := w.Begin(at(10, 30))
	require.NoError(t, err)
	require.Equal(t, StepGap, gap.Kind)
	require.NoError(t, w.Fail(at(10, 30)))

	step, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, StepProgramme, step.Kind)
	assert.Equal(t, 1, step.Index)
}

func TestWalker_NoGapForBackToBack(t *testing.T) {
	timeline := []guide.Programme{
		programme(at(10, 0), at(10, 30), "a"),
		programme(at(10, 30), at(11, 0), "b"),
	}

	w := NewWalker()
	require.NoError(t, w.Load(timeline, at(10, 0)))
	_, err := w.Begin(at(10, 0))
	require.NoError(t, err)
	require.NoError(t, w.Complete(at(10, 30)))

	step, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, StepProgramme, step.Kind)
}

func TestWalker_Abort(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(exampleTimeline(), at(10, 15)))
	_, err := w.Begin(at(10, 15))
	require.NoError(t, err)

	w.Abort()
	assert.Equal(t, StateAborted, w.State())
	assert.True(t, w.Done())

	_, ok := w.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, w.Complete(at(10, 30)), ErrInvalidTransition)
	assert.ErrorIs(t, w.Skip(at(10, 30)), ErrInvalidTransition)

	w.Abort()
	assert.Equal(t, StateAborted, w.State())
}

func TestWalker_EmptyTimelineFinishes(t *testing.T) {
	w := NewWalker()
	require.NoError(t, w.Load(nil, at(10, 0)))
	assert.Equal(t, StateFinished, w.State())

	_, ok := w.Current()
	assert.False(t, ok)
	_, err := w.Begin(at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWalker_InvalidTransitions(t *testing.T) {
	w := NewWalker()
	assert.ErrorIs(t, w.Complete(at(10, 0)), ErrInvalidTransition)
	assert.ErrorIs(t, w.Fail(at(10, 0)), ErrInvalidTransition)
	assert.ErrorIs(t, w.Skip(at(10, 0)), ErrInvalidTransition)
	_, err := w.Begin(at(10, 0))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, w.Load(exampleTimeline(), at(10, 0)))
	assert.ErrorIs(t, w.Load(exampleTimeline(), at(10, 0)), ErrInvalidTransition)
	assert.ErrorIs(t, w.Complete(at(10, 0)), ErrInvalidTransition)
}

func TestWalker_LoadCopiesTimeline(t *testing.T) {
	timeline := exampleTimeline()
	w := NewWalker()
	require.NoError(t, w.Load(timeline, at(10, 15)))

	timeline[0].Description = "changed"
	step, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, "desc IMDB: tt0000001", step.Programme.Description)
}

func TestWalker_ObserverSeesAdvancing(t *testing.T) {
	var seen []State
	w := NewWalker()
	w.Observe(func(tr Transition) {
		seen = append(seen, tr.To)
	})

	require.NoError(t, w.Load(exampleTimeline(), at(10, 15)))
	_, err := w.Begin(at(10, 15))
	require.NoError(t, err)
	require.NoError(t, w.Complete(at(10, 30)))

	assert.Equal(t, []State{StatePositioned, StateStreaming, StateAdvancing, StatePositioned}, seen)
}
