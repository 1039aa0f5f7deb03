package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New builds the process logger from LOG_LEVEL and LOG_FORMAT. It reads .env
// itself because the logger exists before the configuration is loaded.
func New() zerolog.Logger {
	_ = godotenv.Load()
	return build(os.Stdout, os.Getenv("LOG_FORMAT"), ParseLevel(os.Getenv("LOG_LEVEL")))
}

func SetLevel(level zerolog.Level) zerolog.Logger {
	return build(os.Stdout, os.Getenv("LOG_FORMAT"), level)
}

func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func build(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}

var Module = fx.Provide(New)
