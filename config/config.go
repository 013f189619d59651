// Package config loads host configuration from TOML
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/clokk/bonkgo/parameter"
)

// Config is the host-level configuration for the runtime demo
type Config struct {
	Time    TimeConfig    `toml:"time"`
	Physics PhysicsConfig `toml:"physics"`
	Logging LoggingConfig `toml:"logging"`
}

// TimeConfig tunes the injected clock
type TimeConfig struct {
	FixedDelta float64 `toml:"fixed_delta"` // physics step in seconds
	TimeScale  float64 `toml:"time_scale"`
}

// PhysicsConfig selects the backend and world gravity
type PhysicsConfig struct {
	Backend  string  `toml:"backend"`
	GravityX float64 `toml:"gravity_x"`
	GravityY float64 `toml:"gravity_y"`
}

// LoggingConfig tunes the zap logger
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Time: TimeConfig{
			FixedDelta: parameter.FixedDelta,
			TimeScale:  parameter.DefaultTimeScale,
		},
		Physics: PhysicsConfig{
			Backend:  parameter.DefaultBackend,
			GravityY: parameter.DefaultGravityY,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML file over the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Time.FixedDelta <= 0 {
		cfg.Time.FixedDelta = parameter.FixedDelta
	}
	if cfg.Time.TimeScale < 0 {
		cfg.Time.TimeScale = 0
	}
	return cfg, nil
}

// NewLogger builds a zap logger from the logging section
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("config: parse log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("config: build logger: %w", err)
	}
	return log, nil
}
