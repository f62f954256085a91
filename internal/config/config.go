// Package config loads missionsim settings from defaults, an optional
// missionsim.yaml, MISSIONSIM_* environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/missionsim/internal/engine"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// MISSIONSIM_DATABASE_PATH.
const EnvPrefix = "MISSIONSIM"

// Config is the resolved configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// DatabaseConfig locates the results store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// EngineConfig tunes every simulation run.
type EngineConfig struct {
	MaxBatchesPerInstant int `mapstructure:"max_batches_per_instant" yaml:"max_batches_per_instant"`
	ParallelDepth        int `mapstructure:"parallel_depth" yaml:"parallel_depth"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text" | "json"
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "missionsim.db")

	v.SetDefault("engine.max_batches_per_instant", engine.DefaultMaxBatchesPerInstant)
	v.SetDefault("engine.parallel_depth", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration into a new Config. An explicit file must exist;
// without one, ./missionsim.yaml is used when present.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("missionsim")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxBatchesPerInstant <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_batches_per_instant must be positive, got %d", c.Engine.MaxBatchesPerInstant))
	}
	if c.Engine.ParallelDepth < 0 {
		errs = append(errs, fmt.Errorf("engine.parallel_depth must not be negative, got %d", c.Engine.ParallelDepth))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EngineOptions converts the engine section into engine options.
func (c *Config) EngineOptions() []engine.EngineOption {
	opts := []engine.EngineOption{engine.WithMaxBatchesPerInstant(c.Engine.MaxBatchesPerInstant)}
	if c.Engine.ParallelDepth > 0 {
		opts = append(opts, engine.WithParallelDepth(c.Engine.ParallelDepth))
	}
	return opts
}

// NewLogger builds the logger described by the log section. verbose
// forces debug level.
func (c *Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := c.Log.level()
	if err != nil || verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
