// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig selects the log sinks and their rotation.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days

	// ConsoleOut defaults to stderr so stdout stays free for the price table.
	ConsoleOut io.Writer
}

// DefaultLogConfig logs to stderr and to a rotated file under the config dir.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "price-monitor", "logs", "monitor.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLoggerWithConfig returns a timestamped logger writing to every sink cfg
// enables. It also sets the global level. A file sink whose directory cannot
// be created is skipped.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	sinks := make([]io.Writer, 0, 2)

	if cfg.Console {
		out := cfg.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		sinks = append(sinks, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, FormatLevel: levelTag})
	}
	if cfg.File && cfg.FilePath != "" && os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755) == nil {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		})
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	var w io.Writer = io.Discard
	if len(sinks) == 1 {
		w = sinks[0]
	} else if len(sinks) > 1 {
		w = zerolog.MultiLevelWriter(sinks...)
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

var levelTags = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
}

func levelTag(i interface{}) string {
	name, _ := i.(string)
	if tag, ok := levelTags[name]; ok {
		return tag
	}
	if name == "" {
		return "???"
	}
	return name
}

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// ParseLevel maps a config level name to a zerolog level, info by default.
func ParseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// SetDebugLevel lowers the global level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithComponent tags a logger with the component that owns it.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogAlert records the messages fired for one symbol.
func LogAlert(logger zerolog.Logger, symbol string, price float64, messages []string) {
	logger.Info().
		Str("event", "alert").
		Str("symbol", symbol).
		Float64("price", price).
		Strs("messages", messages).
		Msg("Alert triggered")
}

// LogCycle records one poll cycle. Abandoned cycles are warnings, the rest
// are debug noise.
func LogCycle(logger zerolog.Logger, symbols, observed int, duration time.Duration, err error) {
	if err != nil {
		logger.Warn().Str("event", "cycle").Int("symbols", symbols).Dur("duration", duration).
			Err(err).Msg("Poll cycle abandoned")
		return
	}
	logger.Debug().Str("event", "cycle").Int("symbols", symbols).Int("observed", observed).
		Dur("duration", duration).Msg("Poll cycle completed")
}

// LogProviderCall records one market-data request.
func LogProviderCall(logger zerolog.Logger, provider, op string, symbols int, duration time.Duration, err error) {
	ev := logger.Debug().
		Str("event", "provider_call").
		Str("provider", provider).
		Str("op", op).
		Int("symbols", symbols).
		Dur("duration", duration)
	if err != nil {
		ev.Err(err).Msg("Provider call failed")
		return
	}
	ev.Msg("Provider call completed")
}
