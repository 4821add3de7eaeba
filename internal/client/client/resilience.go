package client

import (
	"math"
	"net/http"
	"slices"
	"sync"
	"time"
)

// RetryConfig configures retries of idempotent requests.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// RetryableStatusCodes are HTTP status codes that should be retried.
	RetryableStatusCodes []int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	d := float64(rc.InitialBackoff) * math.Pow(rc.BackoffMultiplier, float64(attempt-1))
	if ceiling := float64(rc.MaxBackoff); rc.MaxBackoff > 0 && d > ceiling {
		d = ceiling
	}
	return time.Duration(d)
}

func (rc RetryConfig) retryableStatus(code int) bool {
	return slices.Contains(rc.RetryableStatusCodes, code)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling the server after FailureThreshold consecutive
// failures and lets a probe through once OpenFor has elapsed.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	successThreshold int
	openFor          time.Duration
	now              func() time.Time

	state     CircuitState
	failures  int
	successes int
	openedAt  time.Time
}

func NewCircuitBreaker(failureThreshold int, openFor time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: 1,
		openFor:          openFor,
		now:              time.Now,
	}
}

// Allow checks if a request should be allowed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.openedAt) < cb.openFor {
			return ErrCircuitOpen
		}
		cb.transitionTo(CircuitHalfOpen)
	}
	return nil
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transitionTo(CircuitClosed)
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(s CircuitState) {
	cb.state = s
	cb.failures = 0
	cb.successes = 0
	if s == CircuitOpen {
		cb.openedAt = cb.now()
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
