package circuitbreaker

import (
	"sync"
	"time"

	"github.com/fundwatch/lib-resilience/resilience/clock"
)

// breaker is the per-service state machine. All mutation happens under mu;
// every update is a handful of counter and enum writes, so the critical
// section is bounded and constant-time. Time is read only through the
// injected clock.
type breaker struct {
	service      string
	policy       Policy
	clk          clock.Clock
	onTransition func(service string, from, to State)

	mu                  sync.Mutex
	state               State
	generation          uint64
	consecutiveFailures uint32
	openedAt            time.Time
	lastTransitionAt    time.Time
	probesInFlight      uint32
	halfOpenSuccesses   uint32
	halfOpenFailures    uint32

	totalCalls     uint64
	totalSuccesses uint64
	totalFailures  uint64
	rejectedCalls  uint64
}

// stateChange records a transition so listeners can be notified after the
// breaker's lock is released.
type stateChange struct {
	from State
	to   State
}

func newBreaker(service string, policy Policy, clk clock.Clock, onTransition func(string, State, State)) *breaker {
	return &breaker{
		service:          service,
		policy:           policy,
		clk:              clk,
		onTransition:     onTransition,
		state:            StateClosed,
		lastTransitionAt: clk.Now(),
	}
}

// admitResult is the breaker's answer to "may this call proceed". gen stamps
// the admission with the breaker's generation so a result reported after an
// intervening transition is recognized as stale.
type admitResult struct {
	allowed bool
	probe   bool
	reason  Reason
	gen     uint64
}

// acquire decides whether a call may proceed. An open breaker flips to
// half-open once the recovery timeout has elapsed, so the triggering call
// itself becomes the first probe. Rejections are counted but never touch
// the failure tally.
func (b *breaker) acquire() admitResult {
	b.mu.Lock()

	var (
		change *stateChange
		res    admitResult
	)

	switch b.state {
	case StateClosed:
		res = admitResult{allowed: true, gen: b.generation}

	case StateOpen:
		if b.clk.Now().Sub(b.openedAt) >= b.policy.RecoveryTimeout {
			change = b.transitionLocked(StateHalfOpen)
			b.probesInFlight++
			res = admitResult{allowed: true, probe: true, gen: b.generation}
		} else {
			b.rejectedCalls++
			res = admitResult{reason: ReasonCircuitOpen}
		}

	case StateHalfOpen:
		if b.probesInFlight < b.policy.HalfOpenMaxProbes {
			b.probesInFlight++
			res = admitResult{allowed: true, probe: true, gen: b.generation}
		} else {
			b.rejectedCalls++
			res = admitResult{reason: ReasonNoProbeSlot}
		}
	}

	b.mu.Unlock()
	b.notify(change)

	return res
}

// reportSuccess applies a successful call outcome. A report whose generation
// predates the breaker's current one only updates the totals: its probe slot
// and half-open counters belong to a superseded episode, so letting it close
// the circuit or free a current probe's slot would corrupt the new episode.
func (b *breaker) reportSuccess(probe bool, gen uint64) {
	b.mu.Lock()

	b.totalCalls++
	b.totalSuccesses++

	if gen != b.generation {
		b.mu.Unlock()
		return
	}

	b.releaseProbeLocked(probe)

	var change *stateChange

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0

	case StateHalfOpen:
		if probe {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.policy.HalfOpenSuccessesToClose {
				change = b.transitionLocked(StateClosed)
			}
		}
	}

	b.mu.Unlock()
	b.notify(change)
}

// reportFailure applies a failed call outcome. The transition to open
// happens at most once per breach: only a closed breaker crossing the
// threshold, or a half-open breaker, can open the circuit. Stale-generation
// reports update the totals only.
func (b *breaker) reportFailure(probe bool, gen uint64) {
	b.mu.Lock()

	b.totalCalls++
	b.totalFailures++

	if gen != b.generation {
		b.mu.Unlock()
		return
	}

	b.consecutiveFailures++
	b.releaseProbeLocked(probe)

	var change *stateChange

	switch b.state {
	case StateClosed:
		if b.consecutiveFailures >= b.policy.FailureThreshold {
			change = b.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		b.halfOpenFailures++
		change = b.transitionLocked(StateOpen)
	}

	b.mu.Unlock()
	b.notify(change)
}

// reset returns the breaker to closed with counters cleared. Used by the
// health checker once a service proves healthy again.
func (b *breaker) reset() {
	b.mu.Lock()

	var change *stateChange
	if b.state != StateClosed {
		change = b.transitionLocked(StateClosed)
	} else {
		b.consecutiveFailures = 0
	}

	b.mu.Unlock()
	b.notify(change)
}

// transitionLocked moves to a new state and starts a new generation, so
// in-flight calls admitted before the transition report as stale. Callers
// must hold mu and invoke notify with the returned change after unlocking.
func (b *breaker) transitionLocked(to State) *stateChange {
	from := b.state
	now := b.clk.Now()

	b.state = to
	b.generation++
	b.lastTransitionAt = now

	switch to {
	case StateOpen:
		b.openedAt = now
		b.halfOpenSuccesses = 0
		b.halfOpenFailures = 0

	case StateHalfOpen:
		b.halfOpenSuccesses = 0
		b.halfOpenFailures = 0
		b.probesInFlight = 0

	case StateClosed:
		b.consecutiveFailures = 0
		b.halfOpenSuccesses = 0
		b.halfOpenFailures = 0
		b.probesInFlight = 0
	}

	return &stateChange{from: from, to: to}
}

// releaseProbeLocked frees a probe slot. Only fresh-generation reports get
// here; the zero floor guards the invariant regardless.
func (b *breaker) releaseProbeLocked(probe bool) {
	if probe && b.probesInFlight > 0 {
		b.probesInFlight--
	}
}

func (b *breaker) notify(change *stateChange) {
	if change != nil && b.onTransition != nil {
		b.onTransition(b.service, change.from, change.to)
	}
}

// State returns the current state.
func (b *breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Snapshot returns a copy of the breaker's current accounting.
func (b *breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	successRate := 0.0
	if b.totalCalls > 0 {
		successRate = float64(b.totalSuccesses) / float64(b.totalCalls)
	}

	return Snapshot{
		Service:             b.service,
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastTransitionAt:    b.lastTransitionAt,
		TotalCalls:          b.totalCalls,
		TotalSuccesses:      b.totalSuccesses,
		TotalFailures:       b.totalFailures,
		RejectedCalls:       b.rejectedCalls,
		SuccessRate:         successRate,
	}
}
