package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Execute is the call guard: the single entry point for running an outbound
// call through a service's circuit breaker.
//
// If the breaker disallows the call (open circuit, or half-open with no free
// probe slot) the action is never invoked and the outcome is Rejected. An
// admitted action runs under the policy's call timeout; a timed-out action
// is classified Failure(timeout) and its late result is discarded. Errors
// are classified through the policy's IsFailure predicate: classified
// failures and successes are reported to the breaker synchronously before
// Execute returns. An error the policy does not classify as a failure counts
// as a breaker success but is still returned to the caller.
//
// A WithFallback result is returned in place of the rejection/failure error,
// while the Outcome keeps its Rejected/Failure tag so telemetry and health
// accounting are unaffected.
func (r *registry) Execute(ctx context.Context, service string, action Action, opts ...CallOption) (any, Outcome, error) {
	if action == nil {
		return nil, Outcome{}, ErrNilAction
	}

	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	b := r.getOrCreate(service, r.defaultPolicy)

	adm := b.acquire()
	if !adm.allowed {
		return r.reject(ctx, service, adm.reason, co)
	}

	value, err := r.invoke(ctx, b.policy.CallTimeout, action)

	if err != nil && b.policy.isFailure(err) {
		b.reportFailure(adm.probe, adm.gen)

		reason := reasonForError(err)
		outcome := Outcome{Status: StatusFailure, Reason: reason}

		r.recordExecution(ctx, service, string(reason))
		r.logger.Warnf("Call to service %s failed (%s): %v", service, reason, err)

		if co.fallback != nil {
			if fbValue, fbErr := co.fallback(ctx, service, err); fbErr == nil {
				outcome.FallbackUsed = true
				return fbValue, outcome, nil
			} else {
				r.logger.Warnf("Fallback for service %s failed: %v", service, fbErr)
			}
		}

		return nil, outcome, fmt.Errorf("service %s call failed: %w", service, err)
	}

	b.reportSuccess(adm.probe, adm.gen)
	r.recordExecution(ctx, service, "success")

	return value, Outcome{Status: StatusSuccess}, err
}

// reject handles the short-circuit path: the dependency is never touched and
// the breaker's failure tally is untouched.
func (r *registry) reject(ctx context.Context, service string, reason Reason, co callOptions) (any, Outcome, error) {
	outcome := Outcome{Status: StatusRejected, Reason: reason}

	var cause error

	switch reason {
	case ReasonNoProbeSlot:
		r.logger.Warnf("Circuit breaker [%s] is HALF-OPEN - no probe slot available", service)
		cause = fmt.Errorf("service %s is recovering (no probe slot): %w", service, ErrNoProbeSlot)
	default:
		r.logger.Warnf("Circuit breaker [%s] is OPEN - request rejected immediately", service)
		cause = fmt.Errorf("service %s is currently unavailable (circuit open): %w", service, ErrCircuitOpen)
	}

	r.recordRejection(ctx, service, reason)

	if co.fallback != nil {
		if value, fbErr := co.fallback(ctx, service, cause); fbErr == nil {
			outcome.FallbackUsed = true
			return value, outcome, nil
		} else {
			r.logger.Warnf("Fallback for service %s failed: %v", service, fbErr)
		}
	}

	return nil, outcome, cause
}

// invoke runs the action under the per-call timeout. The result channel is
// buffered so a late completion is discarded without leaking the goroutine.
func (r *registry) invoke(ctx context.Context, timeout time.Duration, action Action) (any, error) {
	callCtx := ctx

	if timeout > 0 {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type callResult struct {
		value any
		err   error
	}

	done := make(chan callResult, 1)

	go func() {
		value, err := action(callCtx)
		done <- callResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-callCtx.Done():
		// Blame the per-call deadline only when the caller's own context is
		// still live; an expired or cancelled parent is the caller's doing.
		if timeout > 0 && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("call exceeded %v: %w", timeout, ErrCallTimeout)
		}

		return nil, callCtx.Err()
	}
}
