// Package circuitbreaker guards a fallible backend call. After enough
// consecutive failures the breaker opens and callers fail fast instead of
// waiting on a backend that is known to be down; after a cooldown a limited
// number of probe calls decide whether it closes again.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrOpen is returned without invoking the wrapped call while the breaker
// is open.
var ErrOpen = errors.New("circuit breaker open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config tunes one breaker. Zero fields take the defaults below.
type Config struct {
	// FailureThreshold is how many consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// ProbeSuccesses is how many consecutive half-open successes close it.
	ProbeSuccesses int
}

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
	defaultProbeSuccesses   = 2
)

// Breaker is safe for concurrent use.
type Breaker struct {
	name string
	cfg  Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.ProbeSuccesses <= 0 {
		cfg.ProbeSuccesses = defaultProbeSuccesses
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open, and records the outcome.
// Context cancellation says nothing about backend health, so
// context.Canceled and context.DeadlineExceeded are returned to the caller
// without counting as failures.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	b.record(err == nil)
	return err
}

// allow reports whether a call may proceed, moving the breaker to half-open
// once the cooldown has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) <= b.cfg.Cooldown {
			return false
		}
		b.transition(StateHalfOpen)
	}
	return true
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case ok && b.state == StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.ProbeSuccesses {
			b.transition(StateClosed)
		}
	case ok:
		b.failures = 0
	case b.state == StateHalfOpen:
		// A probe failure reopens immediately.
		b.openedAt = b.now()
		b.transition(StateOpen)
	default:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	log.Warn().
		Str("breaker", b.name).
		Str("from", b.state.String()).
		Str("to", to.String()).
		Msg("circuit breaker state change")
	b.state = to
	b.successes = 0
	if to == StateClosed {
		b.failures = 0
	}
}

// State reports the current state, accounting for an elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) > b.cfg.Cooldown {
		b.transition(StateHalfOpen)
	}
	return b.state
}

// Reset force-closes the breaker, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
}
