// Package config loads runtime settings from TCA_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the CLI commands. Flags override these
// values.
type Config struct {
	// LogLevel is the minimum level logged: debug, info, warn or error.
	LogLevel slog.Level `env:"TCA_LOG_LEVEL" envDefault:"warn"`

	// DB is the journal database path. Empty disables journaling for run.
	DB string `env:"TCA_DB"`

	// SettleTimeout bounds how long scenario runs wait for effect work.
	SettleTimeout time.Duration `env:"TCA_SETTLE_TIMEOUT" envDefault:"1s"`

	// MaxSteps limits wakeups fired by a run_clock step.
	MaxSteps int `env:"TCA_MAX_STEPS" envDefault:"1000"`

	// ReplayConcurrency is how many sessions replay verifies at once.
	ReplayConcurrency int `env:"TCA_REPLAY_CONCURRENCY" envDefault:"4"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("TCA_SETTLE_TIMEOUT must be positive, got %s", c.SettleTimeout)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("TCA_MAX_STEPS must be positive, got %d", c.MaxSteps)
	}
	if c.ReplayConcurrency <= 0 {
		return fmt.Errorf("TCA_REPLAY_CONCURRENCY must be positive, got %d", c.ReplayConcurrency)
	}
	return nil
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
