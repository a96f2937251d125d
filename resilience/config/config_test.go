//go:build unit

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Default: PolicyConfig{
			FailureThreshold:         5,
			RecoveryTimeout:          "60s",
			HalfOpenMaxProbes:        1,
			HalfOpenSuccessesToClose: 3,
			CallTimeout:              "30s",
		},
		Services: map[string]PolicyConfig{
			"nih_reporter": {
				FailureThreshold:         3,
				RecoveryTimeout:          "2m",
				HalfOpenMaxProbes:        1,
				HalfOpenSuccessesToClose: 2,
				CallTimeout:              "30s",
			},
		},
		HealthCheck: HealthCheckConfig{
			Interval: "30s",
			Timeout:  "10s",
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "zero failure threshold",
			mutate: func(c *Config) { c.Default.FailureThreshold = 0 },
		},
		{
			name:   "malformed recovery timeout",
			mutate: func(c *Config) { c.Default.RecoveryTimeout = "soon" },
		},
		{
			name:   "negative recovery timeout",
			mutate: func(c *Config) { c.Default.RecoveryTimeout = "-5s" },
		},
		{
			name:   "zero half-open probes",
			mutate: func(c *Config) { c.Default.HalfOpenMaxProbes = 0 },
		},
		{
			name:   "zero successes to close",
			mutate: func(c *Config) { c.Default.HalfOpenSuccessesToClose = 0 },
		},
		{
			name:   "negative call timeout",
			mutate: func(c *Config) { c.Default.CallTimeout = "-1s" },
		},
		{
			name: "invalid service override",
			mutate: func(c *Config) {
				c.Services["pubmed"] = PolicyConfig{
					FailureThreshold:         0,
					RecoveryTimeout:          "90s",
					HalfOpenMaxProbes:        1,
					HalfOpenSuccessesToClose: 2,
				}
			},
		},
		{
			name:   "zero health check interval",
			mutate: func(c *Config) { c.HealthCheck.Interval = "0s" },
		},
		{
			name:   "malformed health check timeout",
			mutate: func(c *Config) { c.HealthCheck.Timeout = "fast" },
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_EmptyCallTimeoutDisablesDeadline(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Default.CallTimeout = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), cfg.DefaultPolicy().CallTimeout)
}

func TestConfig_DefaultPolicy(t *testing.T) {
	t.Parallel()

	policy := validConfig().DefaultPolicy()

	assert.Equal(t, uint32(5), policy.FailureThreshold)
	assert.Equal(t, 60*time.Second, policy.RecoveryTimeout)
	assert.Equal(t, uint32(1), policy.HalfOpenMaxProbes)
	assert.Equal(t, uint32(3), policy.HalfOpenSuccessesToClose)
	assert.Equal(t, 30*time.Second, policy.CallTimeout)
	assert.NoError(t, policy.Validate())
}

func TestConfig_Policies(t *testing.T) {
	t.Parallel()

	policies := validConfig().Policies()

	require.Len(t, policies, 1)

	nih, ok := policies["nih_reporter"]
	require.True(t, ok)
	assert.Equal(t, uint32(3), nih.FailureThreshold)
	assert.Equal(t, 2*time.Minute, nih.RecoveryTimeout)
	assert.NoError(t, nih.Validate())
}

func TestConfig_HealthCheckDurations(t *testing.T) {
	t.Parallel()

	cfg := validConfig()

	assert.Equal(t, 30*time.Second, cfg.HealthCheckInterval())
	assert.Equal(t, 10*time.Second, cfg.HealthCheckTimeout())
}

func TestLoad_Defaults(t *testing.T) {
	// Changes the working directory, so no t.Parallel.
	t.Chdir(t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, uint32(5), cfg.Default.FailureThreshold)
	assert.Equal(t, "60s", cfg.Default.RecoveryTimeout)
	assert.Equal(t, "30s", cfg.HealthCheck.Interval)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
}
