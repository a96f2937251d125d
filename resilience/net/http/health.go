// Package http provides Fiber handlers for liveness and external service
// health reporting.
package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fundwatch/lib-resilience/resilience/circuitbreaker"
)

const (
	StatusAvailable = "available"
	StatusDegraded  = "degraded"
)

// Ping returns HTTP Status 200 with response "pong".
func Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// ExternalServicesHealth creates a Fiber handler that reports the circuit
// breaker state of every registered external service.
//
// Returns HTTP 200 (status: "available") when every breaker is closed, or
// HTTP 503 (status: "degraded") when any breaker is open or half-open. The
// services array is ordered by service identifier so responses are stable
// across calls.
//
// Example:
//
//	f.Get("/health/external-services", http.ExternalServicesHealth(registry))
func ExternalServicesHealth(registry circuitbreaker.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snapshots := registry.SnapshotAll()

		overallStatus := StatusAvailable
		httpStatus := fiber.StatusOK

		for _, s := range snapshots {
			if s.State != circuitbreaker.StateClosed {
				overallStatus = StatusDegraded
				httpStatus = fiber.StatusServiceUnavailable

				break
			}
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":   overallStatus,
			"services": snapshots,
		})
	}
}
