package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where calls are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and calls fail fast.
	Open
	// HalfOpen allows trial calls to test whether the dependency recovered.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to an unreliable dependency.
type CircuitBreaker interface {
	// Execute runs fn unless the circuit is open. A non-nil error from fn counts as a failure.
	Execute(fn func() error) error
	// State returns the current state of the circuit breaker.
	State() State
}

// Option configures a breaker.
type Option func(*breaker)

// WithFailureThreshold sets the consecutive failures needed to trip the circuit.
func WithFailureThreshold(n uint32) Option {
	return func(b *breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the consecutive half-open successes needed to close the circuit.
func WithSuccessThreshold(n uint32) Option {
	return func(b *breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithOpenTimeout sets how long the circuit stays open before allowing a trial call.
func WithOpenTimeout(d time.Duration) Option {
	return func(b *breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithStateChange registers a callback invoked after every transition.
// The callback runs without the breaker's lock held.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *breaker) {
		b.onStateChange = fn
	}
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(b *breaker) {
		b.now = now
	}
}

// breaker holds the configuration and counters of a circuit breaker.
type breaker struct {
	failureThreshold uint32        // Consecutive failures to trip the circuit.
	successThreshold uint32        // Consecutive HalfOpen successes to close the circuit.
	timeout          time.Duration // Time spent Open before moving to HalfOpen.
	onStateChange    func(from, to State)
	now              func() time.Time

	mutex     sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

// New creates a circuit breaker. Defaults: 5 failures, 1 success, 30s open timeout.
func New(opts ...Option) CircuitBreaker {
	b := &breaker{
		failureThreshold: 5,
		successThreshold: 1,
		timeout:          30 * time.Second,
		now:              time.Now,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state, accounting for an elapsed open timeout.
func (b *breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		return HalfOpen
	}
	return b.state
}

// Execute wraps fn with the circuit breaker logic.
func (b *breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err == nil)
	return err
}

// before decides whether a call may proceed.
func (b *breaker) before() error {
	b.mutex.Lock()
	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.timeout {
			b.mutex.Unlock()
			return ErrCircuitOpen
		}
		from := b.setState(HalfOpen)
		b.mutex.Unlock()
		b.notify(from, HalfOpen)
		return nil
	}
	b.mutex.Unlock()
	return nil
}

// after records the outcome of a call.
func (b *breaker) after(success bool) {
	b.mutex.Lock()
	from := b.state

	switch b.state {
	case HalfOpen:
		if !success {
			b.trip()
			break
		}
		b.successes++
		if b.successes >= b.successThreshold {
			b.reset()
		}
	case Closed:
		if success {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	}
	to := b.state
	b.mutex.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

// trip opens the circuit. Caller holds the lock.
func (b *breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
}

// reset closes the circuit. Caller holds the lock.
func (b *breaker) reset() {
	b.state = Closed
	b.failures = 0
	b.successes = 0
}

// setState changes the state and returns the previous one. Caller holds the lock.
func (b *breaker) setState(s State) State {
	from := b.state
	b.state = s
	if s == HalfOpen {
		b.successes = 0
	}
	return from
}

func (b *breaker) notify(from, to State) {
	if b.onStateChange != nil && from != to {
		b.onStateChange(from, to)
	}
}
