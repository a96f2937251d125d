package circuitbreaker

import (
	"github.com/fundwatch/lib-resilience/resilience/clock"
	"github.com/fundwatch/lib-resilience/resilience/opentelemetry/metrics"
)

// Option configures a Registry at construction time.
type Option func(*registry)

// WithClock injects a time source. Defaults to the system clock; tests use
// clock.NewMock to drive recovery timeouts without sleeping.
func WithClock(clk clock.Clock) Option {
	return func(r *registry) {
		if clk != nil {
			r.clk = clk
		}
	}
}

// WithMetricsFactory enables metric emission for executions, rejections,
// and state transitions. A nil factory disables metrics.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(r *registry) {
		r.metrics = factory
	}
}

// WithDefaultPolicy sets the policy used when Execute is called for a
// service that was never registered explicitly.
func WithDefaultPolicy(policy Policy) Option {
	return func(r *registry) {
		r.defaultPolicy = policy
	}
}

// CallOption configures a single guarded call.
type CallOption func(*callOptions)

type callOptions struct {
	fallback Fallback
}

// WithFallback supplies a producer invoked when the circuit rejects the
// call or the action fails. Its result is returned in place of the error,
// but the Rejected/Failure outcome is still surfaced for telemetry.
func WithFallback(fallback Fallback) CallOption {
	return func(o *callOptions) {
		o.fallback = fallback
	}
}
