package circuitbreaker

import (
	"context"
	"errors"
	"time"
)

// Policy is the immutable configuration governing one breaker. It is shared
// read-only once the breaker is created; changing a policy requires
// recreating the registry entry (treated as a restart-only operation).
type Policy struct {
	// FailureThreshold is the number of consecutive failures while closed
	// before the circuit opens.
	FailureThreshold uint32

	// RecoveryTimeout is how long the circuit stays open before a probe
	// may be admitted.
	RecoveryTimeout time.Duration

	// HalfOpenMaxProbes is the number of concurrent trial calls admitted
	// while half-open. 1 is the conservative classic behavior.
	HalfOpenMaxProbes uint32

	// HalfOpenSuccessesToClose is the number of successful probes needed
	// to fully close the circuit.
	HalfOpenSuccessesToClose uint32

	// CallTimeout bounds each guarded call; a call exceeding it is
	// classified as a failure and its late result is discarded.
	// Zero disables the per-call timeout.
	CallTimeout time.Duration

	// IsFailure decides whether an action error counts against the
	// breaker. Nil means DefaultIsFailure.
	IsFailure func(err error) bool
}

// Validate reports whether the policy is usable. Invalid policies are
// rejected at registration time, never silently corrected.
func (p Policy) Validate() error {
	if p.FailureThreshold == 0 {
		return ErrInvalidFailureThreshold
	}

	if p.RecoveryTimeout <= 0 {
		return ErrInvalidRecoveryTimeout
	}

	if p.HalfOpenMaxProbes == 0 {
		return ErrInvalidHalfOpenMaxProbes
	}

	if p.HalfOpenSuccessesToClose == 0 {
		return ErrInvalidHalfOpenSuccesses
	}

	if p.CallTimeout < 0 {
		return ErrInvalidCallTimeout
	}

	return nil
}

func (p Policy) isFailure(err error) bool {
	if p.IsFailure != nil {
		return p.IsFailure(err)
	}

	return DefaultIsFailure(err)
}

// DefaultIsFailure treats every error as a dependency failure except caller
// cancellation, which says nothing about the dependency's health.
func DefaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// DefaultPolicy provides balanced settings for most external services.
func DefaultPolicy() Policy {
	return Policy{
		FailureThreshold:         5,
		RecoveryTimeout:          60 * time.Second,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessesToClose: 3,
		CallTimeout:              30 * time.Second,
	}
}

// AggressivePolicy for services requiring fast failure detection.
func AggressivePolicy() Policy {
	return Policy{
		FailureThreshold:         3,
		RecoveryTimeout:          30 * time.Second,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessesToClose: 2,
		CallTimeout:              10 * time.Second,
	}
}

// ConservativePolicy for services that should tolerate more failures.
func ConservativePolicy() Policy {
	return Policy{
		FailureThreshold:         10,
		RecoveryTimeout:          5 * time.Minute,
		HalfOpenMaxProbes:        2,
		HalfOpenSuccessesToClose: 5,
		CallTimeout:              60 * time.Second,
	}
}

// HTTPServicePolicy optimized for external HTTP APIs: shorter timeout and
// faster failure detection.
func HTTPServicePolicy() Policy {
	return Policy{
		FailureThreshold:         5,
		RecoveryTimeout:          60 * time.Second,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessesToClose: 2,
		CallTimeout:              10 * time.Second,
	}
}

// DefaultServicePolicies returns pre-tuned policies for the external
// research data services the platform depends on.
func DefaultServicePolicies() map[string]Policy {
	return map[string]Policy{
		"nih_reporter": {
			FailureThreshold:         3,
			RecoveryTimeout:          2 * time.Minute,
			HalfOpenMaxProbes:        1,
			HalfOpenSuccessesToClose: 2,
			CallTimeout:              30 * time.Second,
		},
		"google_scholar": {
			FailureThreshold:         5,
			RecoveryTimeout:          time.Minute,
			HalfOpenMaxProbes:        1,
			HalfOpenSuccessesToClose: 2,
			CallTimeout:              20 * time.Second,
		},
		"pubmed": {
			FailureThreshold:         3,
			RecoveryTimeout:          90 * time.Second,
			HalfOpenMaxProbes:        1,
			HalfOpenSuccessesToClose: 2,
			CallTimeout:              25 * time.Second,
		},
		"arxiv": {
			FailureThreshold:         3,
			RecoveryTimeout:          90 * time.Second,
			HalfOpenMaxProbes:        1,
			HalfOpenSuccessesToClose: 2,
			CallTimeout:              25 * time.Second,
		},
	}
}
