package circuitbreaker

import (
	"context"

	"github.com/fundwatch/lib-resilience/resilience/opentelemetry/metrics"
)

// recordExecution counts a completed guarded call. Safe with a nil factory.
func (r *registry) recordExecution(ctx context.Context, service, result string) {
	if r.metrics == nil {
		return
	}

	counter, err := r.metrics.Counter(metrics.MetricExecutionsTotal)
	if err != nil {
		r.logger.Debugf("Failed to create execution counter: %v", err)
		return
	}

	_ = counter.WithLabels(map[string]string{
		"service": service,
		"result":  result,
	}).AddOne(ctx)
}

// recordRejection counts a short-circuited call.
func (r *registry) recordRejection(ctx context.Context, service string, reason Reason) {
	if r.metrics == nil {
		return
	}

	counter, err := r.metrics.Counter(metrics.MetricRejectionsTotal)
	if err != nil {
		r.logger.Debugf("Failed to create rejection counter: %v", err)
		return
	}

	_ = counter.WithLabels(map[string]string{
		"service": service,
		"reason":  string(reason),
	}).AddOne(ctx)
}

// recordTransition counts a state transition.
func (r *registry) recordTransition(service string, from, to State) {
	if r.metrics == nil {
		return
	}

	counter, err := r.metrics.Counter(metrics.MetricTransitionsTotal)
	if err != nil {
		r.logger.Debugf("Failed to create transition counter: %v", err)
		return
	}

	_ = counter.WithLabels(map[string]string{
		"service": service,
		"from":    string(from),
		"to":      string(to),
	}).AddOne(context.Background())
}

// recordState exports the current state as a gauge
// (closed=0, half_open=1, open=2).
func (r *registry) recordState(service string, state State) {
	if r.metrics == nil {
		return
	}

	gauge, err := r.metrics.Gauge(metrics.MetricBreakerState)
	if err != nil {
		r.logger.Debugf("Failed to create state gauge: %v", err)
		return
	}

	_ = gauge.WithLabels(map[string]string{
		"service": service,
	}).Set(context.Background(), state.GaugeValue())
}
