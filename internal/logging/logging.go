// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls log output.
type Config struct {
	Level   string `toml:"level" yaml:"level" env:"LEVEL"`
	JSON    bool   `toml:"json" yaml:"json" env:"JSON"`
	NoColor bool   `toml:"no_color" yaml:"no_color" env:"NO_COLOR"`
}

// DefaultConfig logs at info level to a colored console.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// Init installs the global logger and returns it.
func Init(app string, cfg Config) zerolog.Logger {
	return InitWriter(os.Stderr, app, cfg)
}

// InitWriter is Init with an explicit destination.
func InitWriter(out io.Writer, app string, cfg Config) zerolog.Logger {
	level, _ := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	logger := zerolog.New(out).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names yield info and false.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
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
