package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// ParseLevel converts a case-insensitive level name into a Level.
// Unknown names fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case DebugLevel:
		return DebugLevel
	case WarnLevel, "warning":
		return WarnLevel
	case ErrorLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithBankID adds a bank_id field to a component logger
func WithBankID(logger zerolog.Logger, bankID string) zerolog.Logger {
	return logger.With().Str("bank_id", bankID).Logger()
}

// WithActivityID adds an activity_id field to a component logger
func WithActivityID(logger zerolog.Logger, activityID string) zerolog.Logger {
	return logger.With().Str("activity_id", activityID).Logger()
}
