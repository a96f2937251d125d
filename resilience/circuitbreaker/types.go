package circuitbreaker

import (
	"context"
	"time"
)

// Registry is the shared owner of all circuit breakers. It is the only
// component callers should hold a long-lived reference to.
type Registry interface {
	// GetOrCreate returns the existing breaker for a service or creates a
	// new one from the given policy. If a breaker already exists the policy
	// is ignored: first registration wins, replacing a policy requires a
	// process restart.
	GetOrCreate(service string, policy Policy) (Breaker, error)

	// Execute runs an action through the service's circuit breaker.
	// See guard.go for the full contract.
	Execute(ctx context.Context, service string, action Action, opts ...CallOption) (any, Outcome, error)

	// GetState returns the current state, or StateUnknown for an
	// unregistered service.
	GetState(service string) State

	// IsHealthy reports whether the service's breaker is closed.
	IsHealthy(service string) bool

	// SnapshotAll returns a point-in-time snapshot of every breaker,
	// ordered by service identifier for deterministic output.
	SnapshotAll() []Snapshot

	// Reset returns the service's breaker to the closed state with
	// counters cleared. No-op for unregistered services.
	Reset(service string)

	// RegisterStateChangeListener registers a listener notified on every
	// breaker state transition.
	RegisterStateChangeListener(listener StateChangeListener)
}

// Breaker is a read-only handle to one service's circuit breaker. All
// mutation happens through Registry.Execute.
type Breaker interface {
	State() State
	Snapshot() Snapshot
}

// Action is the caller-supplied operation that performs the actual call to
// the external dependency.
type Action func(ctx context.Context) (any, error)

// Fallback produces a substitute result when the circuit rejects a call or
// the action fails. cause carries the rejection or failure error.
type Fallback func(ctx context.Context, service string, cause error) (any, error)

// HealthCheckFunc checks whether a service has recovered.
type HealthCheckFunc func(ctx context.Context) error

// StateChangeListener is notified when a circuit breaker changes state.
type StateChangeListener interface {
	OnStateChange(service string, from State, to State)
}

// HealthChecker periodically probes unhealthy services and resets their
// breakers once they recover.
type HealthChecker interface {
	// Register adds a service to health checking.
	Register(service string, healthCheckFn HealthCheckFunc)

	// Start begins the health check loop in a separate goroutine.
	Start()

	// Stop gracefully stops the health checker.
	Stop()

	// GetHealthStatus returns the current breaker state of all registered
	// services.
	GetHealthStatus() map[string]string

	// StateChangeListener lets the checker react immediately when a
	// breaker opens.
	StateChangeListener
}

// State represents a circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
	StateUnknown  State = "unknown"
)

// GaugeValue encodes the state for metric export
// (closed=0, half_open=1, open=2).
func (s State) GaugeValue() int64 {
	switch s {
	case StateHalfOpen:
		return 1
	case StateOpen:
		return 2
	default:
		return 0
	}
}

// Status tags the result of a guarded call.
type Status string

const (
	// StatusSuccess means the action completed and was counted as a success.
	StatusSuccess Status = "success"
	// StatusFailure means the action was attempted and counted as a failure.
	StatusFailure Status = "failure"
	// StatusRejected means the circuit short-circuited the call; the action
	// never ran and the breaker's failure tally is untouched.
	StatusRejected Status = "rejected"
)

// Reason refines a failure or rejection.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonCircuitOpen    Reason = "circuit_open"
	ReasonNoProbeSlot    Reason = "no_probe_slot"
	ReasonTimeout        Reason = "timeout"
	ReasonTransportError Reason = "transport_error"
	ReasonBadResponse    Reason = "bad_response"
)

// Outcome is the classified result of a guarded call. It is surfaced even
// when a fallback result is returned, so health accounting and telemetry
// are unaffected by fallbacks.
type Outcome struct {
	Status       Status
	Reason       Reason
	FallbackUsed bool
}

// Rejected reports whether the call was short-circuited by the breaker.
func (o Outcome) Rejected() bool {
	return o.Status == StatusRejected
}

// Snapshot is a read-only projection of one breaker's state, produced on
// demand and never mutated afterwards.
type Snapshot struct {
	Service             string    `json:"service"`
	State               State     `json:"state"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	LastTransitionAt    time.Time `json:"last_transition_at"`
	TotalCalls          uint64    `json:"total_calls"`
	TotalSuccesses      uint64    `json:"total_successes"`
	TotalFailures       uint64    `json:"total_failures"`
	RejectedCalls       uint64    `json:"rejected_calls"`
	SuccessRate         float64   `json:"success_rate"`
}
