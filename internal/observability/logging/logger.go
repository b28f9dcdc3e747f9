// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
	File       string // optional rotating log file, in addition to stdout
	Service    string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
		Service:    "speech-translate-service",
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(output(cfg)).
		With().
		Timestamp().
		Caller().
		Str("service", cfg.Service).
		Logger()
}

func output(cfg Config) io.Writer {
	var out io.Writer = os.Stdout
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}
	if cfg.File == "" {
		return out
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    100, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(out, rotating)
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithSession returns a logger with speech session context.
func WithSession(sessionID string) zerolog.Logger {
	return log.With().
		Str("component", "speech").
		Str("sessionId", sessionID).
		Logger()
}

// WithLanguages returns a logger tagged with a translation language pair.
func WithLanguages(component, sourceLang, targetLang string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Str("sourceLang", sourceLang).
		Str("targetLang", targetLang).
		Logger()
}
