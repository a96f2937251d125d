// Package clock provides an injectable time source so components that make
// timeout and cooldown decisions can be tested deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Components must never call time.Now
// directly; they read time through an injected Clock.
type Clock interface {
	Now() time.Time
}

// New returns a Clock backed by the system wall clock.
func New() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Mock is a manually controlled Clock for tests. It is safe for concurrent
// use; time only moves when Advance or Set is called.
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock creates a Mock frozen at the given instant.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mock's current instant.
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.now
}

// Advance moves the mock clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
}

// Set jumps the mock clock to the given instant.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t
}
