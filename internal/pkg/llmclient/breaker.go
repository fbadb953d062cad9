package llmclient

import (
	"log/slog"
	"sync"
	"time"

	"gatewire/internal/observability"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitHalfOpen
	circuitOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker stops calls to a provider after failureThreshold
// consecutive failures. Once timeout has passed since the last failure,
// probes are let through; successThreshold probe successes close it again
// and any probe failure reopens it.
type circuitBreaker struct {
	provider         string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	now              func() time.Time

	mu          sync.Mutex
	state       circuitState
	failures    int
	probes      int
	lastFailure time.Time
}

func newCircuitBreaker(provider string, failureThreshold, successThreshold int, timeout time.Duration) *circuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	if successThreshold <= 0 {
		successThreshold = 1
	}
	cb := &circuitBreaker{
		provider:         provider,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
	}
	observability.CircuitState.WithLabelValues(provider).Set(float64(circuitClosed))
	return cb
}

// transition must be called with mu held.
func (cb *circuitBreaker) transition(to circuitState) {
	if cb.state == to {
		return
	}
	slog.Info("circuit breaker state change", "provider", cb.provider, "from", cb.state.String(), "to", to.String())
	cb.state = to
	observability.CircuitState.WithLabelValues(cb.provider).Set(float64(to))
}

// Allow reports whether a call may be attempted.
func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != circuitOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailure) <= cb.timeout {
		return false
	}
	cb.probes = 0
	cb.transition(circuitHalfOpen)
	return true
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == circuitHalfOpen {
		cb.probes++
		if cb.probes < cb.successThreshold {
			return
		}
		cb.transition(circuitClosed)
	}
	cb.failures = 0
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()
	if cb.state == circuitHalfOpen {
		cb.probes = 0
		cb.transition(circuitOpen)
		return
	}
	cb.failures++
	if cb.failures >= cb.failureThreshold {
		cb.transition(circuitOpen)
	}
}

// State returns "closed", "open" or "half-open".
func (cb *circuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state.String()
}
