package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/block-bite/blockbite-orm/core"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

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

// CircuitBreaker stops sending statements to the database after Threshold
// consecutive failures, and lets a single probe through once ResetTimeout
// has passed.
type CircuitBreaker struct {
	Threshold    int           // Number of failures before opening
	ResetTimeout time.Duration // Time to wait before half-open

	mu             sync.Mutex
	state          State
	failures       int
	lastFailure    time.Time
	halfOpenPassed bool
	now            func() time.Time
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

func (m *CircuitBreaker) Name() string {
	return "CircuitBreaker"
}

// State returns the current state.
func (m *CircuitBreaker) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CircuitBreaker) Wrap(next core.Executor) core.Executor {
	return core.ExecutorFuncs{
		SelectFunc: func(ctx context.Context, query string, args ...any) ([]core.Row, error) {
			if err := m.allow(); err != nil {
				return nil, err
			}
			rows, err := next.Select(ctx, query, args...)
			m.record(err)
			return rows, err
		},
		ExecFunc: func(ctx context.Context, query string, args ...any) (core.WriteResult, error) {
			if err := m.allow(); err != nil {
				return core.WriteResult{}, err
			}
			res, err := next.Exec(ctx, query, args...)
			m.record(err)
			return res, err
		},
	}
}

func (m *CircuitBreaker) allow() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateOpen:
		if m.now().Sub(m.lastFailure) <= m.ResetTimeout {
			return ErrCircuitOpen
		}
		m.state = StateHalfOpen
		m.halfOpenPassed = true
	case StateHalfOpen:
		// one probe at a time
		if m.halfOpenPassed {
			return ErrCircuitOpen
		}
		m.halfOpenPassed = true
	}
	return nil
}

func (m *CircuitBreaker) record(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil:
		m.recordSuccess()
	case errors.Is(err, context.Canceled):
		// says nothing about the database; let the next probe through
		if m.state == StateHalfOpen {
			m.halfOpenPassed = false
		}
	default:
		m.recordFailure()
	}
}

func (m *CircuitBreaker) recordFailure() {
	m.failures++
	m.lastFailure = m.now()

	switch m.state {
	case StateClosed:
		if m.failures >= m.Threshold {
			m.state = StateOpen
		}
	case StateHalfOpen:
		m.state = StateOpen
		m.halfOpenPassed = false
	}
}

func (m *CircuitBreaker) recordSuccess() {
	m.halfOpenPassed = false
	m.state = StateClosed
	m.failures = 0
}
