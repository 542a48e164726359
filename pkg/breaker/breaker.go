// Package breaker implements the per-tool circuit breaker guarding hub
// dispatch.
//
// Each breaker is a three-state machine (closed, open, half-open). Repeated
// failures open the circuit; after a cool-off window the breaker admits probe
// calls, and enough consecutive successes close it again.
package breaker

import (
	"sync"
	"time"

	"github.com/uaesivakumar/agenthub/pkg/errors"
)

// State identifies the breaker's position in the state machine.
type State string

const (
	// StateClosed admits all calls.
	StateClosed State = "CLOSED"

	// StateOpen rejects all calls until the open timeout elapses.
	StateOpen State = "OPEN"

	// StateHalfOpen admits probe calls while deciding whether to close.
	StateHalfOpen State = "HALF_OPEN"
)

// Default thresholds, overridable per Config.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultOpenTimeout      = 60 * time.Second
)

// Config tunes a breaker's transition thresholds.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a closed
	// circuit.
	FailureThreshold int

	// SuccessThreshold is the consecutive-success count that closes a
	// half-open circuit.
	SuccessThreshold int

	// OpenTimeout is how long an open circuit rejects calls before admitting
	// a probe.
	OpenTimeout time.Duration
}

// DefaultConfig returns the standard breaker thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
		OpenTimeout:      DefaultOpenTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	return c
}

// Breaker guards calls to a single tool.
type Breaker struct {
	mu            sync.Mutex
	cfg           Config
	name          string
	state         State
	failureCount  int
	successCount  int
	lastFailureAt time.Time

	now func() time.Time
}

// New creates a closed breaker for the named tool.
func New(name string, cfg Config) *Breaker {
	return &Breaker{
		cfg:   cfg.withDefaults(),
		name:  name,
		state: StateClosed,
		now:   time.Now,
	}
}

// Allow decides whether a call may proceed. It returns a CIRCUIT_OPEN error
// while the circuit is open; once the open timeout has elapsed the breaker
// moves to half-open and admits the call as a probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.lastFailureAt) > b.cfg.OpenTimeout {
			b.state = StateHalfOpen
			b.successCount = 0
			return nil
		}
		return errors.Newf(errors.KindCircuitOpen, "circuit open for tool %s", b.name).
			WithDetail("tool", b.name)
	}

	return nil
}

// RecordSuccess notes a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

// RecordFailure notes a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureAt = b.now()

	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.successCount = 0
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status is a point-in-time snapshot of a breaker, for diagnostics.
type Status struct {
	State         State     `json:"state"`
	FailureCount  int       `json:"failure_count"`
	SuccessCount  int       `json:"success_count"`
	LastFailureAt time.Time `json:"last_failure_at,omitzero"`
}

// Status returns a snapshot of the breaker's counters.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		State:         b.state,
		FailureCount:  b.failureCount,
		SuccessCount:  b.successCount,
		LastFailureAt: b.lastFailureAt,
	}
}

// Set lazily creates breakers keyed by tool name. All breakers in a set share
// one Config.
type Set struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[string]*Breaker
}

// NewSet creates an empty breaker set with the given config.
func NewSet(cfg Config) *Set {
	return &Set{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// For returns the breaker for the named tool, creating it on first use.
func (s *Set) For(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[name]
	if !ok {
		b = New(name, s.cfg)
		s.breakers[name] = b
	}
	return b
}

// Statuses returns a snapshot of every breaker in the set.
func (s *Set) Statuses() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Status, len(s.breakers))
	for name, b := range s.breakers {
		out[name] = b.Status()
	}
	return out
}
