package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen indicates the breaker rejected the call because the
	// circuit is open.
	ErrCircuitOpen = errors.New("circuitbreaker: circuit open")
	// ErrNoProbeSlot indicates the breaker is half-open and all probe slots
	// are taken.
	ErrNoProbeSlot = errors.New("circuitbreaker: no probe slot available")
	// ErrCallTimeout indicates the action exceeded the policy's call timeout.
	ErrCallTimeout = errors.New("circuitbreaker: call timed out")
	// ErrNilAction indicates Execute was called without an action.
	ErrNilAction = errors.New("circuitbreaker: action must not be nil")

	// ErrInvalidFailureThreshold indicates the failure threshold must be positive.
	ErrInvalidFailureThreshold = errors.New("circuitbreaker: failure threshold must be positive")
	// ErrInvalidRecoveryTimeout indicates the recovery timeout must be positive.
	ErrInvalidRecoveryTimeout = errors.New("circuitbreaker: recovery timeout must be positive")
	// ErrInvalidHalfOpenMaxProbes indicates the half-open probe quota must be positive.
	ErrInvalidHalfOpenMaxProbes = errors.New("circuitbreaker: half-open max probes must be positive")
	// ErrInvalidHalfOpenSuccesses indicates the successes-to-close count must be positive.
	ErrInvalidHalfOpenSuccesses = errors.New("circuitbreaker: half-open successes to close must be positive")
	// ErrInvalidCallTimeout indicates the call timeout must not be negative.
	ErrInvalidCallTimeout = errors.New("circuitbreaker: call timeout must not be negative")

	// ErrInvalidHealthCheckInterval indicates the health check interval must be positive.
	ErrInvalidHealthCheckInterval = errors.New("circuitbreaker: health check interval must be positive")
	// ErrInvalidHealthCheckTimeout indicates the health check timeout must be positive.
	ErrInvalidHealthCheckTimeout = errors.New("circuitbreaker: health check timeout must be positive")
)

// ResponseError marks an HTTP-level failure from a dependency so policies can
// classify it (rate limits, 5xx) without depending on any HTTP client.
type ResponseError struct {
	StatusCode int
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("dependency returned status %d", e.StatusCode)
}

// reasonForError derives the outcome reason from a classified failure.
func reasonForError(err error) Reason {
	if errors.Is(err, ErrCallTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return ReasonBadResponse
	}

	return ReasonTransportError
}
