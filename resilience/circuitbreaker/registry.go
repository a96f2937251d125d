package circuitbreaker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fundwatch/lib-resilience/resilience/clock"
	"github.com/fundwatch/lib-resilience/resilience/log"
	"github.com/fundwatch/lib-resilience/resilience/opentelemetry/metrics"
)

type registry struct {
	breakers      map[string]*breaker
	listeners     []StateChangeListener
	mu            sync.RWMutex
	logger        log.Logger
	clk           clock.Clock
	metrics       *metrics.MetricsFactory
	defaultPolicy Policy
}

// NewRegistry creates the shared circuit breaker registry. An invalid
// default policy is a startup error.
func NewRegistry(logger log.Logger, opts ...Option) (Registry, error) {
	if logger == nil {
		logger = &log.NoneLogger{}
	}

	r := &registry{
		breakers:      make(map[string]*breaker),
		listeners:     make([]StateChangeListener, 0),
		logger:        logger,
		clk:           clock.New(),
		defaultPolicy: DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.defaultPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}

	return r, nil
}

func (r *registry) GetOrCreate(service string, policy Policy) (Breaker, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("service %s: %w", service, err)
	}

	return r.getOrCreate(service, policy), nil
}

// getOrCreate is race-free under a concurrency storm of first calls:
// double-checked locking guarantees exactly one breaker per service.
func (r *registry) getOrCreate(service string, policy Policy) *breaker {
	r.mu.RLock()
	b, exists := r.breakers[service]
	r.mu.RUnlock()

	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock
	if b, exists = r.breakers[service]; exists {
		return b
	}

	b = newBreaker(service, policy, r.clk, r.handleStateChange)
	r.breakers[service] = b

	r.logger.Infof("Created circuit breaker for service: %s", service)
	r.recordState(service, StateClosed)

	return b
}

func (r *registry) lookup(service string) (*breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.breakers[service]

	return b, exists
}

func (r *registry) GetState(service string) State {
	b, exists := r.lookup(service)
	if !exists {
		return StateUnknown
	}

	return b.State()
}

func (r *registry) IsHealthy(service string) bool {
	// Only closed counts as healthy; open and half-open both need the
	// health checker or live probes to intervene.
	return r.GetState(service) == StateClosed
}

func (r *registry) SnapshotAll() []Snapshot {
	r.mu.RLock()
	breakers := make([]*breaker, 0, len(r.breakers))

	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(breakers))
	for _, b := range breakers {
		snapshots = append(snapshots, b.Snapshot())
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Service < snapshots[j].Service
	})

	return snapshots
}

func (r *registry) Reset(service string) {
	b, exists := r.lookup(service)
	if !exists {
		r.logger.Warnf("Cannot reset unknown service: %s", service)
		return
	}

	r.logger.Infof("Resetting circuit breaker for service: %s", service)
	b.reset()
}

// RegisterStateChangeListener registers a listener for state change notifications.
func (r *registry) RegisterStateChangeListener(listener StateChangeListener) {
	if listener == nil {
		r.logger.Warnf("Attempted to register a nil state change listener")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, listener)
	r.logger.Debugf("Registered state change listener (total: %d)", len(r.listeners))
}

// handleStateChange logs transitions, records metrics, and fans out to
// listeners. Called by breakers after their own lock is released; it must
// never call back into the reporting breaker.
func (r *registry) handleStateChange(service string, from, to State) {
	r.logger.Warnf("Circuit breaker [%s] state changed: %s -> %s", service, from, to)

	switch to {
	case StateOpen:
		r.logger.Errorf("Circuit breaker [%s] OPENED - service is unhealthy, requests will fast-fail", service)
	case StateHalfOpen:
		r.logger.Infof("Circuit breaker [%s] HALF-OPEN - testing service recovery", service)
	case StateClosed:
		r.logger.Infof("Circuit breaker [%s] CLOSED - service is healthy", service)
	}

	r.recordTransition(service, from, to)
	r.recordState(service, to)

	r.mu.RLock()
	listeners := make([]StateChangeListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, listener := range listeners {
		// Notify in a goroutine so listeners cannot block breaker operations
		go func(l StateChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Errorf("State change listener panic for service %s: %v", service, rec)
				}
			}()

			l.OnStateChange(service, from, to)
		}(listener)
	}
}
