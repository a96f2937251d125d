package circuitbreaker

import (
	"context"
	"sync"
	"time"

	"github.com/fundwatch/lib-resilience/resilience/backoff"
	"github.com/fundwatch/lib-resilience/resilience/clock"
	"github.com/fundwatch/lib-resilience/resilience/log"
)

// healHistory tracks consecutive failed heal attempts for one service so the
// checker can back off instead of hammering a dependency that is still down.
type healHistory struct {
	failedAttempts uint
	nextAttemptAt  time.Time
}

// healthChecker runs active recovery probes against services whose breakers
// are not closed, and resets the breaker once a probe succeeds.
type healthChecker struct {
	registry       Registry
	services       map[string]HealthCheckFunc
	history        map[string]*healHistory
	interval       time.Duration
	checkTimeout   time.Duration
	logger         log.Logger
	clk            clock.Clock
	stopChan       chan struct{}
	immediateCheck chan string
	wg             sync.WaitGroup
	mu             sync.RWMutex
}

// HealthCheckerOption configures a health checker at construction time.
type HealthCheckerOption func(*healthChecker)

// WithHealthCheckerClock injects a time source for backoff scheduling.
// Defaults to the system clock.
func WithHealthCheckerClock(clk clock.Clock) HealthCheckerOption {
	return func(hc *healthChecker) {
		if clk != nil {
			hc.clk = clk
		}
	}
}

// NewHealthChecker creates a health checker bound to the registry.
// interval is how often unhealthy services are re-probed; checkTimeout bounds
// each individual probe.
func NewHealthChecker(registry Registry, interval, checkTimeout time.Duration, logger log.Logger, opts ...HealthCheckerOption) (HealthChecker, error) {
	if interval <= 0 {
		return nil, ErrInvalidHealthCheckInterval
	}

	if checkTimeout <= 0 {
		return nil, ErrInvalidHealthCheckTimeout
	}

	if logger == nil {
		logger = &log.NoneLogger{}
	}

	hc := &healthChecker{
		registry:       registry,
		services:       make(map[string]HealthCheckFunc),
		history:        make(map[string]*healHistory),
		interval:       interval,
		checkTimeout:   checkTimeout,
		logger:         logger,
		clk:            clock.New(),
		stopChan:       make(chan struct{}),
		immediateCheck: make(chan string, 10),
	}

	for _, opt := range opts {
		opt(hc)
	}

	return hc, nil
}

// Register adds a service to health checking.
func (hc *healthChecker) Register(service string, healthCheckFn HealthCheckFunc) {
	if healthCheckFn == nil {
		hc.logger.Warnf("Ignoring nil health check function for service: %s", service)
		return
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.services[service] = healthCheckFn
	hc.logger.Infof("Registered health check for service: %s", service)
}

// Start begins the health check loop in a separate goroutine.
func (hc *healthChecker) Start() {
	hc.wg.Add(1)

	go hc.healthCheckLoop()

	hc.logger.Infof("Health checker started - checking services every %v", hc.interval)
}

// Stop gracefully stops the health checker.
func (hc *healthChecker) Stop() {
	close(hc.stopChan)
	hc.wg.Wait()
	hc.logger.Info("Health checker stopped")
}

func (hc *healthChecker) healthCheckLoop() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hc.performHealthChecks()
		case service := <-hc.immediateCheck:
			hc.logger.Debugf("Triggering immediate health check for service: %s", service)
			hc.checkServiceHealth(service, false)
		case <-hc.stopChan:
			return
		}
	}
}

func (hc *healthChecker) performHealthChecks() {
	hc.mu.RLock()
	services := make([]string, 0, len(hc.services))

	for service := range hc.services {
		services = append(services, service)
	}
	hc.mu.RUnlock()

	hc.logger.Debug("Performing health checks on registered services...")

	unhealthyCount := 0
	recoveredCount := 0

	for _, service := range services {
		if hc.registry.IsHealthy(service) {
			continue
		}

		unhealthyCount++

		if hc.checkServiceHealth(service, true) {
			recoveredCount++
		}
	}

	if unhealthyCount > 0 {
		hc.logger.Infof("Health check complete: %d services needed healing, %d recovered", unhealthyCount, recoveredCount)
	} else {
		hc.logger.Debug("All services healthy")
	}
}

// checkServiceHealth probes one service and resets its breaker on success.
// When honorBackoff is set, a service whose recent probes keep failing is
// skipped until its backoff window has elapsed. Returns true if the service
// recovered.
func (hc *healthChecker) checkServiceHealth(service string, honorBackoff bool) bool {
	hc.mu.RLock()
	healthCheckFn, exists := hc.services[service]
	hc.mu.RUnlock()

	if !exists {
		hc.logger.Warnf("No health check function registered for service: %s", service)
		return false
	}

	if hc.registry.IsHealthy(service) {
		hc.logger.Debugf("Service %s is already healthy, skipping check", service)
		return false
	}

	if honorBackoff && !hc.attemptDue(service) {
		hc.logger.Debugf("Service %s is backing off, skipping check", service)
		return false
	}

	hc.logger.Infof("Attempting to heal service: %s (circuit breaker is %s)", service, hc.registry.GetState(service))

	ctx, cancel := context.WithTimeout(context.Background(), hc.checkTimeout)
	err := healthCheckFn(ctx)

	cancel()

	if err == nil {
		hc.logger.Infof("Service %s recovered - resetting circuit breaker", service)
		hc.registry.Reset(service)
		hc.recordHealResult(service, true)

		return true
	}

	hc.logger.Warnf("Service %s still unhealthy: %v", service, err)
	hc.recordHealResult(service, false)

	return false
}

// attemptDue reports whether the service's backoff window has elapsed.
func (hc *healthChecker) attemptDue(service string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	h, exists := hc.history[service]
	if !exists {
		return true
	}

	return !hc.clk.Now().Before(h.nextAttemptAt)
}

// recordHealResult updates the service's failure streak. Consecutive failed
// heals push the next periodic attempt out exponentially, with jitter so
// many services do not probe in lockstep. The immediate check path ignores
// the window, so an open transition is always probed right away.
func (hc *healthChecker) recordHealResult(service string, recovered bool) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if recovered {
		delete(hc.history, service)
		return
	}

	h, exists := hc.history[service]
	if !exists {
		h = &healHistory{}
		hc.history[service] = h
	}

	h.failedAttempts++

	delay := backoff.Exponential(hc.interval, int(h.failedAttempts)-1)
	if maxDelay := 10 * hc.interval; delay > maxDelay {
		delay = maxDelay
	}

	h.nextAttemptAt = hc.clk.Now().Add(backoff.FullJitter(delay))
}

// GetHealthStatus returns the current breaker state of all registered services.
func (hc *healthChecker) GetHealthStatus() map[string]string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := make(map[string]string, len(hc.services))

	for service := range hc.services {
		status[service] = string(hc.registry.GetState(service))
	}

	return status
}

// OnStateChange implements StateChangeListener. An open transition schedules
// an immediate heal attempt instead of waiting for the next tick.
func (hc *healthChecker) OnStateChange(service string, from State, to State) {
	hc.logger.Debugf("Health checker notified of state change for %s: %s -> %s", service, from, to)

	if to != StateOpen {
		return
	}

	hc.logger.Infof("Circuit breaker opened for %s - scheduling immediate health check", service)

	// Non-blocking send to avoid deadlock
	select {
	case hc.immediateCheck <- service:
		hc.logger.Debugf("Immediate health check scheduled for %s", service)
	default:
		hc.logger.Warnf("Immediate health check channel full for %s, will check on next interval", service)
	}
}
