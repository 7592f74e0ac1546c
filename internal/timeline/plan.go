package timeline

import (
	"time"

	"github.com/stwalsh4118/epgcast/internal/guide"
)

// Plan previews the steps a stream starting at now would produce if every
// programme resolved and played for exactly its scheduled length.
func Plan(timeline []guide.Programme, now time.Time) []Step {
	w := NewWalker()
	if err := w.Load(timeline, now); err != nil {
		return nil
	}

	steps := make([]Step, 0, len(timeline))
	clock := now
	for !w.Done() {
		pending, _ := w.Current()
		if pending.Kind == StepProgramme && pending.Programme.Start.After(clock) {
			clock = pending.Programme.Start
		}

		step, err := w.Begin(clock)
		if err != nil {
			break
		}
		steps = append(steps, step)

		if step.Kind == StepProgramme {
			clock = step.Programme.Stop
		} else {
			clock = clock.Add(time.Duration(step.DurationSeconds) * time.Second)
		}
		if err := w.Complete(clock); err != nil {
			break
		}
	}
	return steps
}
