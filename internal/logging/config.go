// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "WALLETLINK_LOG_LEVEL"
	EnvLogConsole   = "WALLETLINK_LOG_CONSOLE"
	EnvLogTimestamp = "WALLETLINK_LOG_TIMESTAMP"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config selects level and output format.
type Config struct {
	Level     string `yaml:"level"`
	Console   bool   `yaml:"console"`
	Timestamp bool   `yaml:"timestamp"`
}

// DefaultConfig returns the settings for profile before env overrides.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: "debug", Console: true, Timestamp: false}
	default:
		return Config{Level: "info", Console: false, Timestamp: true}
	}
}

// New returns a logger writing to w with environment overrides applied.
func New(cfg Config, w io.Writer, app string) zerolog.Logger {
	applyEnvOverrides(&cfg)
	lvl, ok := parseLevel(cfg.Level)
	if !ok {
		lvl = zerolog.InfoLevel
	}

	out := w
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).Level(lvl).With().Str("app", app)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// NewStderr is New writing to standard error.
func NewStderr(cfg Config, app string) zerolog.Logger {
	return New(cfg, os.Stderr, app)
}

func applyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv(EnvLogLevel)); raw != "" {
		if _, ok := parseLevel(raw); ok {
			cfg.Level = raw
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogConsole)); ok {
		cfg.Console = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
