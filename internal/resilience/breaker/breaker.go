// Package breaker implements a per-dependency circuit breaker with a rolling
// failure window and bounded half-open probing.
package breaker

import (
	"sync"
	"time"

	"order-sync-gateway/pkg/apperror"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation; requests pass through.
	StateOpen                  // Failing; requests are rejected immediately.
	StateHalfOpen              // Probing; limited requests allowed to test recovery.
)

// String returns the state name used in metrics and responses.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Settings configures a Breaker.
type Settings struct {
	Name              string
	FailureThreshold  int           // failures within Window that open the circuit
	Window            time.Duration // rolling failure window
	Cooldown          time.Duration // OPEN duration before probing
	HalfOpenMaxProbes int           // concurrent probes admitted while HALF_OPEN
	SuccessThreshold  int           // consecutive probe successes that close the circuit

	// OnStateChange is invoked outside the breaker lock after every transition.
	OnStateChange func(name string, from, to State)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Breaker is safe for concurrent use. All state lives behind one mutex
// scoped to the breaker.
type Breaker struct {
	mu         sync.Mutex
	s          Settings
	state      State
	generation uint64
	failures   []time.Time
	openedAt   time.Time
	probes     int
	successes  int
}

type stateChange struct{ from, to State }

// New creates a CLOSED breaker.
func New(s Settings) *Breaker {
	if s.FailureThreshold < 1 {
		s.FailureThreshold = 1
	}
	if s.HalfOpenMaxProbes < 1 {
		s.HalfOpenMaxProbes = 1
	}
	if s.SuccessThreshold < 1 {
		s.SuccessThreshold = 1
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return &Breaker{s: s}
}

// Name returns the dependency the breaker guards.
func (b *Breaker) Name() string { return b.s.Name }

// Ticket is an admitted request. Exactly one of Success, Failure or Cancel
// must be called once the request finishes.
type Ticket struct {
	b          *Breaker
	generation uint64
	probe      bool
}

// Allow admits a request or returns a CIRCUIT_OPEN error carrying the
// remaining cool-down as retry_after.
func (b *Breaker) Allow() (Ticket, error) {
	b.mu.Lock()
	now := b.s.Now()
	changes := b.refresh(now, nil)

	var (
		t   Ticket
		err error
	)
	switch b.state {
	case StateOpen:
		err = apperror.CircuitOpen(b.s.Name, b.s.Cooldown-now.Sub(b.openedAt))
	case StateHalfOpen:
		if b.probes >= b.s.HalfOpenMaxProbes {
			err = apperror.CircuitOpen(b.s.Name, 0).WithDetail("reason", "half-open probe limit reached")
			break
		}
		b.probes++
		t = Ticket{b: b, generation: b.generation, probe: true}
	default:
		t = Ticket{b: b, generation: b.generation}
	}
	b.mu.Unlock()

	b.notify(changes)
	return t, err
}

// Success records a healthy response.
func (t Ticket) Success() { t.b.record(t, outcomeSuccess) }

// Failure records a response that indicates dependency ill-health.
func (t Ticket) Failure() { t.b.record(t, outcomeFailure) }

// Cancel releases a probe slot without counting the request either way.
func (t Ticket) Cancel() { t.b.record(t, outcomeCancel) }

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeCancel
)

func (b *Breaker) record(t Ticket, o outcome) {
	if b == nil {
		return
	}
	b.mu.Lock()
	now := b.s.Now()
	changes := b.refresh(now, nil)

	// Results from before the last state change are stale.
	if t.generation == b.generation {
		switch b.state {
		case StateClosed:
			if o == outcomeFailure {
				b.failures = append(b.pruned(now), now)
				if len(b.failures) >= b.s.FailureThreshold {
					changes = b.setState(StateOpen, now, changes)
				}
			}
		case StateHalfOpen:
			if t.probe && b.probes > 0 {
				b.probes--
			}
			switch o {
			case outcomeSuccess:
				b.successes++
				if b.successes >= b.s.SuccessThreshold {
					changes = b.setState(StateClosed, now, changes)
				}
			case outcomeFailure:
				changes = b.setState(StateOpen, now, changes)
			}
		}
	}
	b.mu.Unlock()

	b.notify(changes)
}

// State returns the current state, applying any elapsed cool-down.
func (b *Breaker) State() State {
	b.mu.Lock()
	changes := b.refresh(b.s.Now(), nil)
	st := b.state
	b.mu.Unlock()

	b.notify(changes)
	return st
}

// Snapshot is a point-in-time view of the breaker.
type Snapshot struct {
	Name     string    `json:"name"`
	State    string    `json:"state"`
	Failures int       `json:"failures_in_window"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
}

// Snapshot returns the breaker's current state and window failure count.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	now := b.s.Now()
	changes := b.refresh(now, nil)
	snap := Snapshot{
		Name:     b.s.Name,
		State:    b.state.String(),
		Failures: len(b.pruned(now)),
		OpenedAt: b.openedAt,
	}
	b.mu.Unlock()

	b.notify(changes)
	return snap
}

// refresh moves OPEN to HALF_OPEN once the cool-down has elapsed.
func (b *Breaker) refresh(now time.Time, changes []stateChange) []stateChange {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.s.Cooldown {
		return b.setState(StateHalfOpen, now, changes)
	}
	return changes
}

func (b *Breaker) setState(to State, now time.Time, changes []stateChange) []stateChange {
	from := b.state
	b.generation++
	b.failures = nil
	b.probes = 0
	b.successes = 0
	if to == StateOpen {
		b.openedAt = now
	}
	if to == StateClosed {
		b.openedAt = time.Time{}
	}
	b.state = to
	if from == to {
		return changes
	}
	return append(changes, stateChange{from: from, to: to})
}

func (b *Breaker) pruned(now time.Time) []time.Time {
	cutoff := now.Add(-b.s.Window)
	i := 0
	for i < len(b.failures) && !b.failures[i].After(cutoff) {
		i++
	}
	b.failures = b.failures[i:]
	return b.failures
}

func (b *Breaker) notify(changes []stateChange) {
	if b.s.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		b.s.OnStateChange(b.s.Name, c.from, c.to)
	}
}
