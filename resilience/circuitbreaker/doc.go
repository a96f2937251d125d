// Package circuitbreaker gates outbound calls to unreliable external
// services behind per-service circuit breakers.
//
// Use NewRegistry to create the shared registry, register per-service
// policies with GetOrCreate, and run every outbound call through
// Registry.Execute so failures are tracked consistently across callers.
// SnapshotAll exposes live breaker state for health endpoints and metrics.
//
// Optional health-check integration (NewHealthChecker) can reset breakers
// automatically once a downstream service recovers.
package circuitbreaker
