package streaming

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/logger"
	"github.com/stwalsh4118/epgcast/internal/metrics"
	"github.com/stwalsh4118/epgcast/internal/resolver"
	"github.com/stwalsh4118/epgcast/internal/timeline"
)

// Resolver turns a content identifier into a playable source
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*resolver.Source, error)
}

// Player plays one step into a sink
type Player interface {
	Play(ctx context.Context, step StreamStep, sink io.Writer) StepResult
}

// Engine turns channel requests into sessions. It holds no per-request
// state; every session fetches its own guide and walks its own timeline.
type Engine struct {
	guides   guide.Source
	resolver Resolver
	player   Player
	recorder Recorder
	metrics  *metrics.Metrics
	registry *Registry
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRecorder sets the session history recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRegistry shares an active stream registry
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// NewEngine creates a streaming engine
func NewEngine(guides guide.Source, res Resolver, player Player, opts ...Option) *Engine {
	e := &Engine{
		guides:   guides,
		resolver: res,
		player:   player,
		recorder: NopRecorder{},
		registry: NewRegistry(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry of running streams
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Prepare fetches the guide and builds the channel's timeline. Its errors
// (guide.ErrChannelNotFound and guide failures) occur before any output.
func (e *Engine) Prepare(ctx context.Context, channelID, clientAddr string) (*Session, error) {
	fetchStart := time.Now()
	g, err := e.guides.Fetch(ctx)
	e.metrics.ObserveGuideFetch(err == nil, time.Since(fetchStart))
	if err != nil {
		return nil, err
	}

	now := e.now()
	programmes, err := g.TimelineFor(channelID, now)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("channel_id", channelID).
			Msg("Channel not found in guide")
		return nil, err
	}

	return &Session{
		ID:         uuid.New(),
		ChannelID:  channelID,
		ClientAddr: clientAddr,
		PreparedAt: now,
		timeline:   programmes,
		engine:     e,
	}, nil
}

// Session is one client's stream of one channel
type Session struct {
	ID         uuid.UUID
	ChannelID  string
	ClientAddr string
	PreparedAt time.Time

	timeline []guide.Programme
	engine   *Engine
}

// Timeline returns a copy of the session's programmes
func (s *Session) Timeline() []guide.Programme {
	out := make([]guide.Programme, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// Run walks the timeline, writing every step to sink, until the timeline is
// exhausted or the client goes away. Per-step failures skip the step.
func (s *Session) Run(ctx context.Context, sink io.Writer) Summary {
	e := s.engine
	log := logger.Component("engine").With().
		Str("session_id", s.ID.String()).
		Str("channel_id", s.ChannelID).
		Logger()

	// history writes must outlive a cancelled request
	recordCtx := context.WithoutCancel(ctx)

	summary := Summary{
		SessionID: s.ID,
		ChannelID: s.ChannelID,
		StartedAt: e.now(),
	}

	walker := timeline.NewWalker()
	walker.Observe(func(tr timeline.Transition) {
		log.Debug().
			Str("from", string(tr.From)).
			Str("to", string(tr.To)).
			Int("index", tr.Step.Index).
			Msg("Timeline transition")
	})
	if err := walker.Load(s.timeline, summary.StartedAt); err != nil {
		log.Error().Err(err).Msg("Failed to load timeline")
	}

	e.registry.Add(ActiveStream{
		SessionID:  s.ID,
		ChannelID:  s.ChannelID,
		ClientAddr: s.ClientAddr,
		StartedAt:  summary.StartedAt,
	})
	e.metrics.StreamStarted()
	e.recorder.SessionStarted(recordCtx, SessionInfo{
		SessionID:  s.ID,
		ChannelID:  s.ChannelID,
		ClientAddr: s.ClientAddr,
		Programmes: len(s.timeline),
		StartedAt:  summary.StartedAt,
	})

	log.Info().
		Int("programmes", len(s.timeline)).
		Int("initial_index", walker.Cursor().Index).
		Str("state", string(walker.State())).
		Msg("Stream started")

	for !walker.Done() {
		if ctx.Err() != nil {
			walker.Abort()
			break
		}

		pending, _ := walker.Current()
		step := StreamStep{Step: pending}
		var identifier string

		if pending.Kind == timeline.StepProgramme {
			id, src, err := s.resolve(ctx, pending.Programme)
			identifier = id
			if err != nil {
				if ctx.Err() != nil {
					walker.Abort()
					break
				}
				now := e.now()
				streamErr := ClassifyError(err)
				log.Warn().
					Err(err).
					Int("index", pending.Index).
					Str("title", pending.Programme.Title).
					Str("identifier", identifier).
					Str("reason", streamErr.Type.String()).
					Msg("Skipping programme")
				e.metrics.IncSkips(streamErr.Type.String())
				s.report(recordCtx, &summary, step, identifier, StepResult{
					Outcome:  OutcomeSkipped,
					Err:      streamErr,
					Started:  now,
					Finished: now,
				})
				_ = walker.Skip(now)
				continue
			}
			step.Source = src
		}

		begun, err := walker.Begin(e.now())
		if err != nil {
			log.Error().Err(err).Msg("Failed to begin step")
			walker.Abort()
			break
		}
		step.Step = begun

		event := log.Info().
			Int("index", begun.Index).
			Str("kind", string(begun.Kind)).
			Int64("offset_seconds", begun.OffsetSeconds).
			Int64("duration_seconds", begun.DurationSeconds)
		if step.Source != nil {
			event = event.Str("identifier", identifier).Str("locator", step.Source.Locator)
		}
		event.Msg("Starting step")

		e.registry.Update(s.ID, func(a *ActiveStream) {
			a.StepKind = string(begun.Kind)
			a.StepIndex = begun.Index
			a.StepTitle = begun.Programme.Title
		})

		result := e.player.Play(ctx, step, sink)
		e.metrics.ObserveStep(string(begun.Kind), string(result.Outcome), result.Bytes)
		s.report(recordCtx, &summary, step, identifier, result)

		e.registry.Update(s.ID, func(a *ActiveStream) {
			a.StepsPlayed++
			a.Bytes += result.Bytes
		})

		switch result.Outcome {
		case OutcomeCompleted:
			_ = walker.Complete(e.now())
		case OutcomeAborted:
			walker.Abort()
		default:
			_ = walker.Fail(e.now())
		}
	}

	summary.State = string(walker.State())
	summary.EndedAt = e.now()

	e.registry.Delete(s.ID)
	e.metrics.StreamEnded(summary.State)
	e.recorder.SessionEnded(recordCtx, summary)

	log.Info().
		Str("state", summary.State).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int64("bytes", summary.Bytes).
		Msg("Stream ended")

	return summary
}

// resolve extracts the identifier from p and resolves it to a source
func (s *Session) resolve(ctx context.Context, p guide.Programme) (string, *resolver.Source, error) {
	identifier, ok := resolver.ExtractIdentifier(p.Description)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", resolver.ErrIdentifierNotFound, p.Title)
	}
	src, err := s.engine.resolver.Resolve(ctx, identifier)
	if err != nil {
		return identifier, nil, err
	}
	return identifier, src, nil
}

func (s *Session) report(ctx context.Context, summary *Summary, step StreamStep, identifier string, result StepResult) {
	summary.Steps++
	summary.Bytes += result.Bytes
	switch result.Outcome {
	case OutcomeCompleted:
		summary.Completed++
	case OutcomeSkipped:
		summary.Skipped++
	case OutcomeFailed:
		summary.Failed++
	}

	report := StepReport{
		SessionID:       s.ID,
		Sequence:        summary.Steps,
		Kind:            string(step.Kind),
		Index:           step.Index,
		Title:           step.Programme.Title,
		Identifier:      identifier,
		OffsetSeconds:   step.OffsetSeconds,
		DurationSeconds: step.DurationSeconds,
		Outcome:         result.Outcome,
		Bytes:           result.Bytes,
		StartedAt:       result.Started,
		FinishedAt:      result.Finished,
	}
	if step.Source != nil {
		report.Locator = step.Source.Locator
	}
	if result.Err != nil {
		report.Reason = result.Err.Type.String()
	}
	s.engine.recorder.StepFinished(ctx, report)
}
