// Package config loads and validates the engine's tunable settings. The
// numeric thresholds here are product-calibrated: they are configuration,
// not derived values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"maestro/internal/usecase/experiment"
	"maestro/internal/usecase/planner"
	"maestro/internal/usecase/rl"
	"maestro/internal/usecase/scoring"
	"maestro/internal/usecase/shadow"
)

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
	Output string `yaml:"output"` // stdout|stderr|discard|<path>
}

// TracerConfig configures OpenTelemetry tracing.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// EngineConfig gathers every decision-engine tunable.
type EngineConfig struct {
	Scoring     scoring.Tunables  `yaml:"scoring"`
	Planner     planner.Config    `yaml:"planner"`
	Shadow      shadow.Config     `yaml:"shadow"`
	Experiment  experiment.Config `yaml:"experiment"`
	RL          rl.Config         `yaml:"rl"`
	MaxChainLen int               `yaml:"max_chain_len"`
	// QuotaHorizonDays bounds the quota forecaster's projection.
	QuotaHorizonDays int `yaml:"quota_horizon_days"`
}

// BreakerConfig configures the (role, model) circuit breakers with string
// durations, parsed at load time.
type BreakerConfig struct {
	OpenFor  string `yaml:"open_for"` // e.g. "10m"
	Interval string `yaml:"interval"` // e.g. "1h"
}

// Durations parses the string fields, leaving zero where unset so
// downstream defaults apply.
func (b BreakerConfig) Durations() (shadow.BreakerConfig, error) {
	var out shadow.BreakerConfig
	if b.OpenFor != "" {
		d, err := time.ParseDuration(b.OpenFor)
		if err != nil {
			return out, fmt.Errorf("breaker open_for: %w", err)
		}
		out.OpenFor = d
	}
	if b.Interval != "" {
		d, err := time.ParseDuration(b.Interval)
		if err != nil {
			return out, fmt.Errorf("breaker interval: %w", err)
		}
		out.Interval = d
	}
	return out, nil
}

// RefreshConfig configures the periodic re-planning job.
type RefreshConfig struct {
	// Schedule is a cron expression ("*/15 * * * *") or empty to disable.
	Schedule string `yaml:"schedule"`
	// ForcedPerHour caps operator-forced refreshes.
	ForcedPerHour int `yaml:"forced_per_hour"`
}

// Config is the top-level application configuration.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	Engine  EngineConfig  `yaml:"engine"`
	Breaker BreakerConfig `yaml:"breaker"`
	Refresh RefreshConfig `yaml:"refresh"`
}

// Defaults returns the baseline configuration. All engine zero values are
// resolved by the component constructors, so Defaults stays thin.
func Defaults() *Config {
	return &Config{
		Logger:  LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer:  TracerConfig{Enabled: false, Exporter: "noop"},
		Refresh: RefreshConfig{ForcedPerHour: 6},
	}
}

// Load reads config from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot honor.
func Validate(cfg *Config) error {
	switch cfg.Logger.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger level %q not one of debug|info|warn|error", cfg.Logger.Level)
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("tracer exporter %q not one of noop|stdout", cfg.Tracer.Exporter)
	}
	if cfg.Engine.Planner.BeamWidth < 0 || cfg.Engine.Planner.PerProviderCap < 0 {
		return fmt.Errorf("planner bounds must be non-negative")
	}
	if e := cfg.Engine.RL.Epsilon; e < 0 || e > 1 {
		return fmt.Errorf("rl epsilon %v outside [0,1]", e)
	}
	if _, err := cfg.Breaker.Durations(); err != nil {
		return err
	}
	return nil
}
