// Package config loads runtime settings for the cartridge CLI.
//
// Precedence is CLI flags > environment > config file > defaults. Flags are
// applied by the caller after Load returns.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: CARTRIDGE_LOG_LEVEL and
// so on.
const EnvPrefix = "CARTRIDGE"

// Config holds the resolved settings.
type Config struct {
	Log     LogConfig
	Runtime RuntimeConfig
	Store   StoreConfig
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// RuntimeConfig tunes engines and validation.
type RuntimeConfig struct {
	MaxSteps int           // raised events drained per Send
	MaxDelay time.Duration // timeout delays above this warn
}

// StoreConfig locates the journal.
type StoreConfig struct {
	Path string // empty disables recording
}

// Default returns the configuration used with no file or environment.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Runtime: RuntimeConfig{MaxSteps: 1000, MaxDelay: time.Hour},
	}
}

// Load reads configuration from path, if set, and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("runtime.max_steps", def.Runtime.MaxSteps)
	v.SetDefault("runtime.max_delay", def.Runtime.MaxDelay.String())
	v.SetDefault("store.path", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Runtime: RuntimeConfig{
			MaxSteps: v.GetInt("runtime.max_steps"),
			MaxDelay: v.GetDuration("runtime.max_delay"),
		},
		Store: StoreConfig{Path: v.GetString("store.path")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Runtime.MaxSteps <= 0 {
		return fmt.Errorf("runtime.max_steps must be positive, got %d", c.Runtime.MaxSteps)
	}
	if c.Runtime.MaxDelay <= 0 {
		return fmt.Errorf("runtime.max_delay must be positive, got %v", c.Runtime.MaxDelay)
	}
	return nil
}

// Logger builds the slog logger the configuration describes, writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}
