package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
)

// ErrCircuitOpen indicates an upstream is being skipped after repeated failures
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// StateClosed lets every call through
	StateClosed CircuitState = iota
	// StateOpen rejects calls until the reset timeout has elapsed
	StateOpen
	// StateHalfOpen lets a trial call through to check whether the upstream recovered
	StateHalfOpen
)

// String returns the string representation of CircuitState
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the upstream circuit breakers. A non-positive
// Threshold disables them.
type BreakerConfig struct {
	Threshold    int
	ResetTimeout time.Duration
}

// Breaker stops calling an upstream that keeps failing. Only ErrUpstream
// failures count: an empty result or a cancelled request says nothing about
// the upstream's health.
type Breaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	lastFailureTime time.Time
}

// NewBreaker creates a closed breaker for the named upstream
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: cfg.Threshold,
		resetTimeout:     cfg.ResetTimeout,
		now:              time.Now,
		state:            StateClosed,
	}
}

// Call runs fn unless the breaker is open
func (b *Breaker) Call(fn func() error) error {
	if !b.allow() {
		return fmt.Errorf("%w: %s: %w", ErrUpstream, b.name, ErrCircuitOpen)
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.recordSuccessLocked()
	case errors.Is(err, context.Canceled):
	case errors.Is(err, ErrUpstream):
		b.recordFailureLocked()
	}
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state != StateOpen
}

// refreshLocked moves an open breaker to half-open once the reset timeout has elapsed
func (b *Breaker) refreshLocked() {
	if b.state == StateOpen && b.now().Sub(b.lastFailureTime) >= b.resetTimeout {
		b.state = StateHalfOpen
		b.failures = 0
	}
}

func (b *Breaker) recordSuccessLocked() {
	b.failures = 0
	if b.state == StateHalfOpen {
		logger.Component("resolver").Info().Str("upstream", b.name).Msg("Upstream recovered, circuit closed")
		b.state = StateClosed
	}
}

func (b *Breaker) recordFailureLocked() {
	b.failures++
	b.lastFailureTime = b.now()

	if b.state != StateOpen && (b.state == StateHalfOpen || b.failures >= b.failureThreshold) {
		logger.Component("resolver").Warn().
			Str("upstream", b.name).
			Int("failures", b.failures).
			Dur("reset_timeout", b.resetTimeout).
			Msg("Upstream keeps failing, circuit opened")
		b.state = StateOpen
	}
}

// State returns the current state of the breaker
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

// Failures returns the consecutive failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker and forgets past failures
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.lastFailureTime = time.Time{}
}

type guardedSearcher struct {
	next    Searcher
	breaker *Breaker
}

// GuardSearcher routes every search through b. A nil b returns s unchanged.
func GuardSearcher(s Searcher, b *Breaker) Searcher {
	if b == nil {
		return s
	}
	return &guardedSearcher{next: s, breaker: b}
}

func (g *guardedSearcher) Search(ctx context.Context, identifier string) ([]Candidate, error) {
	var candidates []Candidate
	err := g.breaker.Call(func() error {
		var err error
		candidates, err = g.next.Search(ctx, identifier)
		return err
	})
	return candidates, err
}

type guardedMaterializer struct {
	next    Materializer
	breaker *Breaker
}

// GuardMaterializer routes every listing through b. A nil b returns m unchanged.
func GuardMaterializer(m Materializer, b *Breaker) Materializer {
	if b == nil {
		return m
	}
	return &guardedMaterializer{next: m, breaker: b}
}

func (g *guardedMaterializer) ListFiles(ctx context.Context, reference string) ([]File, error) {
	var files []File
	err := g.breaker.Call(func() error {
		var err error
		files, err = g.next.ListFiles(ctx, reference)
		return err
	})
	return files, err
}

// NewUpstreamChain builds the production chain: Torznab search and provider
// listing, each behind its own breaker when breakers are enabled.
func NewUpstreamChain(cfg Config, search SearchConfig, provider ProviderConfig, breakers BreakerConfig) *Chain {
	var searcher Searcher = NewTorznabSearcher(search, nil)
	var materializer Materializer = NewProviderMaterializer(provider, nil)
	if breakers.Threshold > 0 {
		searcher = GuardSearcher(searcher, NewBreaker("search", breakers))
		materializer = GuardMaterializer(materializer, NewBreaker("provider", breakers))
	}
	return NewChain(cfg, searcher, materializer)
}
