// Package config loads and validates the resilience layer's startup
// configuration: a default circuit breaker policy, per-service overrides,
// and health checker settings.
package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/fundwatch/lib-resilience/resilience/circuitbreaker"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// PolicyConfig is the wire form of a circuit breaker policy. Durations are
// strings so YAML and environment values read naturally ("90s", "2m").
type PolicyConfig struct {
	FailureThreshold         uint32 `mapstructure:"failure_threshold"`
	RecoveryTimeout          string `mapstructure:"recovery_timeout"`
	HalfOpenMaxProbes        uint32 `mapstructure:"half_open_max_probes"`
	HalfOpenSuccessesToClose uint32 `mapstructure:"half_open_successes_to_close"`
	CallTimeout              string `mapstructure:"call_timeout"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
	Timeout  string `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Default     PolicyConfig            `mapstructure:"default"`
	Services    map[string]PolicyConfig `mapstructure:"services"`
	HealthCheck HealthCheckConfig       `mapstructure:"health_check"`
	Logging     LoggingConfig           `mapstructure:"logging"`
}

// Load reads configuration from ./config.yaml (or ./config/config.yaml) and
// the environment, applies defaults, and validates the result. Invalid
// configuration is a startup error, never silently corrected.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("default.failure_threshold", 5)
	v.SetDefault("default.recovery_timeout", "60s")
	v.SetDefault("default.half_open_max_probes", 1)
	v.SetDefault("default.half_open_successes_to_close", 3)
	v.SetDefault("default.call_timeout", "30s")
	v.SetDefault("health_check.interval", "30s")
	v.SetDefault("health_check.timeout", "10s")
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Default,
			validation.Required,
			validation.By(validatePolicyConfig),
		),
		validation.Field(&c.Services,
			validation.Each(validation.By(validatePolicyConfig)),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value any) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&hc.Timeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value any) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validatePolicyConfig(value any) error {
	pc, ok := value.(PolicyConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a PolicyConfig")
	}

	if pc.FailureThreshold == 0 {
		return validation.NewError("validation_invalid_threshold", "failure_threshold must be at least 1")
	}

	if pc.HalfOpenMaxProbes == 0 {
		return validation.NewError("validation_invalid_probes", "half_open_max_probes must be at least 1")
	}

	if pc.HalfOpenSuccessesToClose == 0 {
		return validation.NewError("validation_invalid_successes", "half_open_successes_to_close must be at least 1")
	}

	if err := validatePositiveDuration(pc.RecoveryTimeout); err != nil {
		return err
	}

	// Empty call_timeout disables the per-call deadline.
	if pc.CallTimeout != "" {
		d, err := time.ParseDuration(pc.CallTimeout)
		if err != nil {
			return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 30s, 2m)")
		}

		if d < 0 {
			return validation.NewError("validation_negative_duration", "call_timeout must not be negative")
		}
	}

	return nil
}

func validatePositiveDuration(value any) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 30s, 2m)")
	}

	if d <= 0 {
		return validation.NewError("validation_nonpositive_duration", "must be a positive duration")
	}

	return nil
}

// DefaultPolicy materializes the default circuit breaker policy. The config
// must have passed Validate; parse errors here indicate a programming error.
func (c *Config) DefaultPolicy() circuitbreaker.Policy {
	return materializePolicy(c.Default)
}

// Policies materializes the per-service policy overrides.
func (c *Config) Policies() map[string]circuitbreaker.Policy {
	policies := make(map[string]circuitbreaker.Policy, len(c.Services))

	for service, pc := range c.Services {
		policies[service] = materializePolicy(pc)
	}

	return policies
}

// HealthCheckInterval returns the parsed health check interval.
func (c *Config) HealthCheckInterval() time.Duration {
	return mustParseDuration(c.HealthCheck.Interval)
}

// HealthCheckTimeout returns the parsed per-probe timeout.
func (c *Config) HealthCheckTimeout() time.Duration {
	return mustParseDuration(c.HealthCheck.Timeout)
}

func materializePolicy(pc PolicyConfig) circuitbreaker.Policy {
	var callTimeout time.Duration
	if pc.CallTimeout != "" {
		callTimeout = mustParseDuration(pc.CallTimeout)
	}

	return circuitbreaker.Policy{
		FailureThreshold:         pc.FailureThreshold,
		RecoveryTimeout:          mustParseDuration(pc.RecoveryTimeout),
		HalfOpenMaxProbes:        pc.HalfOpenMaxProbes,
		HalfOpenSuccessesToClose: pc.HalfOpenSuccessesToClose,
		CallTimeout:              callTimeout,
	}
}

func mustParseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("config: duration %q escaped validation: %v", s, err))
	}

	return d
}
