//go:build unit

package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundwatch/lib-resilience/resilience/clock"
)

func testPolicy() Policy {
	return Policy{
		FailureThreshold:         3,
		RecoveryTimeout:          time.Minute,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessesToClose: 2,
		CallTimeout:              10 * time.Second,
	}
}

// transitionRecorder captures transitions synchronously for assertions.
type transitionRecorder struct {
	mu          sync.Mutex
	transitions []stateChange
}

func (r *transitionRecorder) record(_ string, from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transitions = append(r.transitions, stateChange{from: from, to: to})
}

func (r *transitionRecorder) all() []stateChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]stateChange, len(r.transitions))
	copy(out, r.transitions)

	return out
}

func newTestBreaker(policy Policy) (*breaker, *clock.Mock, *transitionRecorder) {
	mock := clock.NewMock(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	rec := &transitionRecorder{}

	return newBreaker("nih_reporter", policy, mock, rec.record), mock, rec
}

func failTimes(b *breaker, n int) {
	for i := 0; i < n; i++ {
		adm := b.acquire()
		if adm.allowed {
			b.reportFailure(adm.probe, adm.gen)
		}
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	b, _, rec := newTestBreaker(testPolicy())

	failTimes(b, 2)
	assert.Equal(t, StateClosed, b.State())

	failTimes(b, 1)
	assert.Equal(t, StateOpen, b.State())

	transitions := rec.all()
	require.Len(t, transitions, 1)
	assert.Equal(t, StateClosed, transitions[0].from)
	assert.Equal(t, StateOpen, transitions[0].to)
}

func TestBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBreaker(testPolicy())

	failTimes(b, 2)

	adm := b.acquire()
	require.True(t, adm.allowed)
	b.reportSuccess(adm.probe, adm.gen)

	// The streak restarts, so two more failures do not open the circuit.
	failTimes(b, 2)
	assert.Equal(t, StateClosed, b.State())

	failTimes(b, 1)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_RejectsWhileOpen(t *testing.T) {
	t.Parallel()

	b, mock, _ := newTestBreaker(testPolicy())
	failTimes(b, 3)

	before := b.Snapshot()

	mock.Advance(testPolicy().RecoveryTimeout - time.Nanosecond)

	for i := 0; i < 5; i++ {
		adm := b.acquire()
		assert.False(t, adm.allowed)
		assert.Equal(t, ReasonCircuitOpen, adm.reason)
	}

	after := b.Snapshot()
	assert.Equal(t, StateOpen, after.State)
	assert.Equal(t, before.TotalFailures, after.TotalFailures)
	assert.Equal(t, before.ConsecutiveFailures, after.ConsecutiveFailures)
	assert.Equal(t, before.RejectedCalls+5, after.RejectedCalls)
}

func TestBreaker_HalfOpenAtRecoveryTimeout(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	b, mock, rec := newTestBreaker(policy)
	failTimes(b, 3)

	mock.Advance(policy.RecoveryTimeout - time.Nanosecond)
	adm := b.acquire()
	assert.False(t, adm.allowed)

	// Exactly at the deadline the next call becomes the first probe.
	mock.Advance(time.Nanosecond)
	adm = b.acquire()
	assert.True(t, adm.allowed)
	assert.True(t, adm.probe)
	assert.Equal(t, StateHalfOpen, b.State())

	transitions := rec.all()
	require.Len(t, transitions, 2)
	assert.Equal(t, stateChange{from: StateOpen, to: StateHalfOpen}, transitions[1])
}

func TestBreaker_ClosesAfterProbeSuccesses(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	b, mock, _ := newTestBreaker(policy)
	failTimes(b, 3)
	mock.Advance(policy.RecoveryTimeout)

	adm := b.acquire()
	require.True(t, adm.allowed)
	b.reportSuccess(adm.probe, adm.gen)
	assert.Equal(t, StateHalfOpen, b.State())

	adm = b.acquire()
	require.True(t, adm.allowed)
	b.reportSuccess(adm.probe, adm.gen)
	assert.Equal(t, StateClosed, b.State())

	snap := b.Snapshot()
	assert.Equal(t, uint32(0), snap.ConsecutiveFailures)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	b, mock, _ := newTestBreaker(policy)
	failTimes(b, 3)
	mock.Advance(policy.RecoveryTimeout)

	adm := b.acquire()
	require.True(t, adm.allowed)

	openedBefore := mock.Now()
	mock.Advance(10 * time.Second)

	b.reportFailure(adm.probe, adm.gen)
	assert.Equal(t, StateOpen, b.State())

	// The recovery window restarts from the reopen instant.
	mock.Set(openedBefore.Add(policy.RecoveryTimeout))
	adm = b.acquire()
	assert.False(t, adm.allowed)

	mock.Advance(10 * time.Second)
	adm = b.acquire()
	assert.True(t, adm.allowed)
}

func TestBreaker_ProbeQuota(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	policy.HalfOpenMaxProbes = 2
	policy.HalfOpenSuccessesToClose = 3

	b, mock, _ := newTestBreaker(policy)
	failTimes(b, 3)
	mock.Advance(policy.RecoveryTimeout)

	first := b.acquire()
	second := b.acquire()
	require.True(t, first.allowed)
	require.True(t, second.allowed)

	third := b.acquire()
	assert.False(t, third.allowed)
	assert.Equal(t, ReasonNoProbeSlot, third.reason)

	// Finishing a probe frees its slot.
	b.reportSuccess(first.probe, first.gen)

	fourth := b.acquire()
	assert.True(t, fourth.allowed)
}

func TestBreaker_LateProbeResultDoesNotExtendOpen(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	policy.HalfOpenMaxProbes = 2

	b, mock, _ := newTestBreaker(policy)
	failTimes(b, 3)
	mock.Advance(policy.RecoveryTimeout)

	first := b.acquire()
	second := b.acquire()
	require.True(t, first.allowed)
	require.True(t, second.allowed)

	// First probe fails and reopens the circuit.
	b.reportFailure(first.probe, first.gen)
	require.Equal(t, StateOpen, b.State())
	openSnap := b.Snapshot()

	// The straggler's failure lands on the already-open breaker.
	b.reportFailure(second.probe, second.gen)
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, openSnap.LastTransitionAt, b.Snapshot().LastTransitionAt)
}

func TestBreaker_StaleProbeDoesNotLeakIntoNewEpisode(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	policy.FailureThreshold = 1
	policy.HalfOpenMaxProbes = 2
	policy.HalfOpenSuccessesToClose = 1

	b, mock, _ := newTestBreaker(policy)
	failTimes(b, 1)
	mock.Advance(policy.RecoveryTimeout)

	// First half-open episode: two probes in flight, one fails and reopens.
	probeA := b.acquire()
	probeB := b.acquire()
	require.True(t, probeA.allowed)
	require.True(t, probeB.allowed)

	b.reportFailure(probeA.probe, probeA.gen)
	require.Equal(t, StateOpen, b.State())

	// Second episode begins while probe B is still in flight.
	mock.Advance(policy.RecoveryTimeout)

	probeC := b.acquire()
	require.True(t, probeC.allowed)
	require.Equal(t, StateHalfOpen, b.State())

	// B's success belongs to the superseded episode: it must not close the
	// circuit and must not free a slot owned by the current episode.
	b.reportSuccess(probeB.probe, probeB.gen)
	assert.Equal(t, StateHalfOpen, b.State())

	probeD := b.acquire()
	assert.True(t, probeD.allowed)

	fifth := b.acquire()
	assert.False(t, fifth.allowed)
	assert.Equal(t, ReasonNoProbeSlot, fifth.reason)

	// Only a current-episode probe can close the circuit.
	b.reportSuccess(probeC.probe, probeC.gen)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_SuccessWhileOpenHasNoEffect(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	policy.FailureThreshold = 2

	b, _, rec := newTestBreaker(policy)

	// Two calls admitted while closed; the dependency degrades under them.
	first := b.acquire()
	second := b.acquire()
	require.True(t, first.allowed)
	require.True(t, second.allowed)

	b.reportFailure(first.probe, first.gen)
	b.reportFailure(second.probe, second.gen)
	require.Equal(t, StateOpen, b.State())

	// A third in-flight call's late success lands on the open breaker.
	b.reportSuccess(false, first.gen)

	assert.Equal(t, StateOpen, b.State())
	assert.Len(t, rec.all(), 1)
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b, _, rec := newTestBreaker(testPolicy())
	failTimes(b, 3)
	require.Equal(t, StateOpen, b.State())

	b.reset()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Snapshot().ConsecutiveFailures)

	transitions := rec.all()
	require.Len(t, transitions, 2)
	assert.Equal(t, stateChange{from: StateOpen, to: StateClosed}, transitions[1])

	// Resetting a closed breaker clears the streak without a transition.
	failTimes(b, 2)
	b.reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Snapshot().ConsecutiveFailures)
	assert.Len(t, rec.all(), 2)
}

func TestBreaker_OpensExactlyOnceUnderConcurrentFailures(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	policy.FailureThreshold = 5

	b, _, rec := newTestBreaker(policy)

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			adm := b.acquire()
			if adm.allowed {
				b.reportFailure(adm.probe, adm.gen)
			}
		}()
	}

	wg.Wait()

	require.Equal(t, StateOpen, b.State())

	opens := 0
	for _, tr := range rec.all() {
		if tr.to == StateOpen {
			opens++
		}
	}

	assert.Equal(t, 1, opens)
}

func TestBreaker_SnapshotAccounting(t *testing.T) {
	t.Parallel()

	b, mock, _ := newTestBreaker(testPolicy())

	adm := b.acquire()
	b.reportSuccess(adm.probe, adm.gen)

	failTimes(b, 3)

	// Rejected while open.
	b.acquire()

	snap := b.Snapshot()
	assert.Equal(t, "nih_reporter", snap.Service)
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, uint64(4), snap.TotalCalls)
	assert.Equal(t, uint64(1), snap.TotalSuccesses)
	assert.Equal(t, uint64(3), snap.TotalFailures)
	assert.Equal(t, uint64(1), snap.RejectedCalls)
	assert.InDelta(t, 0.25, snap.SuccessRate, 1e-9)
	assert.Equal(t, mock.Now(), snap.LastTransitionAt)
}
