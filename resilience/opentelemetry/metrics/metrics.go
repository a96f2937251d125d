// Package metrics provides a thread-safe factory for OpenTelemetry metrics
// with lazy instrument creation and a fluent recording API.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fundwatch/lib-resilience/resilience/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ErrNilMeter indicates that a nil OTel meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes an instrument that the factory can create on demand.
type Metric struct {
	Name        string
	Description string
	Unit        string
}

// Pre-configured metrics for the circuit breaker subsystem.
var (
	// MetricExecutionsTotal counts guarded calls by service and result.
	MetricExecutionsTotal = Metric{
		Name:        "circuit_breaker_executions_total",
		Unit:        "1",
		Description: "Number of calls executed through a circuit breaker, by result.",
	}

	// MetricRejectionsTotal counts short-circuited calls by service and reason.
	MetricRejectionsTotal = Metric{
		Name:        "circuit_breaker_rejections_total",
		Unit:        "1",
		Description: "Number of calls rejected before reaching the dependency.",
	}

	// MetricTransitionsTotal counts breaker state transitions.
	MetricTransitionsTotal = Metric{
		Name:        "circuit_breaker_transitions_total",
		Unit:        "1",
		Description: "Number of circuit breaker state transitions.",
	}

	// MetricBreakerState encodes the current state of each breaker
	// (closed=0, half_open=1, open=2).
	MetricBreakerState = Metric{
		Name:        "circuit_breaker_state",
		Unit:        "1",
		Description: "Current circuit breaker state per service (closed=0, half_open=1, open=2).",
	}
)

// MetricsFactory creates and caches OTel instruments. Instruments are built
// lazily on first use and shared across goroutines via sync.Map.
type MetricsFactory struct {
	meter    metric.Meter
	counters sync.Map // string -> metric.Int64Counter
	gauges   sync.Map // string -> metric.Int64Gauge
	logger   log.Logger
}

// NewMetricsFactory creates a new MetricsFactory instance.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	if logger == nil {
		logger = &log.NoneLogger{}
	}

	return &MetricsFactory{
		meter:  meter,
		logger: logger,
	}, nil
}

// NewNopFactory returns a MetricsFactory backed by OpenTelemetry's no-op
// meter. Safe as a fallback when a real meter is unavailable.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: &log.NoneLogger{},
	}
}

// Counter creates or retrieves a counter and returns a builder for recording.
func (f *MetricsFactory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := f.getOrCreateCounter(m)
	if err != nil {
		return nil, err
	}

	return &CounterBuilder{
		counter: counter,
		name:    m.Name,
	}, nil
}

// Gauge creates or retrieves a gauge and returns a builder for recording.
func (f *MetricsFactory) Gauge(m Metric) (*GaugeBuilder, error) {
	gauge, err := f.getOrCreateGauge(m)
	if err != nil {
		return nil, err
	}

	return &GaugeBuilder{
		gauge: gauge,
		name:  m.Name,
	}, nil
}

func (f *MetricsFactory) getOrCreateCounter(m Metric) (metric.Int64Counter, error) {
	if cached, ok := f.counters.Load(m.Name); ok {
		return cached.(metric.Int64Counter), nil
	}

	counter, err := f.meter.Int64Counter(
		m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
	)
	if err != nil {
		f.logger.Errorf("failed to create counter %s: %v", m.Name, err)
		return nil, fmt.Errorf("creating counter %s: %w", m.Name, err)
	}

	actual, _ := f.counters.LoadOrStore(m.Name, counter)

	return actual.(metric.Int64Counter), nil
}

func (f *MetricsFactory) getOrCreateGauge(m Metric) (metric.Int64Gauge, error) {
	if cached, ok := f.gauges.Load(m.Name); ok {
		return cached.(metric.Int64Gauge), nil
	}

	gauge, err := f.meter.Int64Gauge(
		m.Name,
		metric.WithDescription(m.Description),
		metric.WithUnit(m.Unit),
	)
	if err != nil {
		f.logger.Errorf("failed to create gauge %s: %v", m.Name, err)
		return nil, fmt.Errorf("creating gauge %s: %w", m.Name, err)
	}

	actual, _ := f.gauges.LoadOrStore(m.Name, gauge)

	return actual.(metric.Int64Gauge), nil
}
