//go:build unit

package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundwatch/lib-resilience/resilience/circuitbreaker"
)

type stubRegistry struct {
	snapshots []circuitbreaker.Snapshot
}

func (s *stubRegistry) GetOrCreate(string, circuitbreaker.Policy) (circuitbreaker.Breaker, error) {
	return nil, nil
}

func (s *stubRegistry) Execute(context.Context, string, circuitbreaker.Action, ...circuitbreaker.CallOption) (any, circuitbreaker.Outcome, error) {
	return nil, circuitbreaker.Outcome{}, nil
}

func (s *stubRegistry) GetState(string) circuitbreaker.State { return circuitbreaker.StateUnknown }
func (s *stubRegistry) IsHealthy(string) bool                { return true }
func (s *stubRegistry) SnapshotAll() []circuitbreaker.Snapshot {
	return s.snapshots
}
func (s *stubRegistry) Reset(string) {}

func (s *stubRegistry) RegisterStateChangeListener(circuitbreaker.StateChangeListener) {}

func TestPing(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/ping", Ping)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestExternalServicesHealth_AllClosed(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		snapshots: []circuitbreaker.Snapshot{
			{Service: "arxiv", State: circuitbreaker.StateClosed, TotalCalls: 10, TotalSuccesses: 10, SuccessRate: 1.0},
			{Service: "pubmed", State: circuitbreaker.StateClosed},
		},
	}

	app := fiber.New()
	app.Get("/health/external-services", ExternalServicesHealth(registry))

	resp, err := app.Test(httptest.NewRequest("GET", "/health/external-services", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Status   string                    `json:"status"`
		Services []circuitbreaker.Snapshot `json:"services"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, StatusAvailable, payload.Status)
	require.Len(t, payload.Services, 2)
	assert.Equal(t, "arxiv", payload.Services[0].Service)
	assert.Equal(t, "pubmed", payload.Services[1].Service)
}

func TestExternalServicesHealth_OpenBreakerDegrades(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		snapshots: []circuitbreaker.Snapshot{
			{Service: "google_scholar", State: circuitbreaker.StateOpen, ConsecutiveFailures: 5},
			{Service: "nih_reporter", State: circuitbreaker.StateClosed},
		},
	}

	app := fiber.New()
	app.Get("/health/external-services", ExternalServicesHealth(registry))

	resp, err := app.Test(httptest.NewRequest("GET", "/health/external-services", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload struct {
		Status   string                    `json:"status"`
		Services []circuitbreaker.Snapshot `json:"services"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, StatusDegraded, payload.Status)
}

func TestExternalServicesHealth_HalfOpenDegrades(t *testing.T) {
	t.Parallel()

	registry := &stubRegistry{
		snapshots: []circuitbreaker.Snapshot{
			{Service: "pubmed", State: circuitbreaker.StateHalfOpen},
		},
	}

	app := fiber.New()
	app.Get("/health/external-services", ExternalServicesHealth(registry))

	resp, err := app.Test(httptest.NewRequest("GET", "/health/external-services", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestExternalServicesHealth_NoServices(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/health/external-services", ExternalServicesHealth(&stubRegistry{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/health/external-services", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
