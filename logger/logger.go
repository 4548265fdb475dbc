package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	LOG_LEVEL_DEBUG = "DEBUG"
	LOG_LEVEL_INFO  = "INFO"
	LOG_LEVEL_WARN  = "WARN"
	LOG_LEVEL_ERROR = "ERROR"
	LOG_LEVEL_FATAL = "FATAL"
	LOG_LEVEL_PANIC = "PANIC"

	LevelEnvVar  = "SOAR_LOGLEVEL"
	FormatEnvVar = "SOAR_LOG_FORMAT"

	// FormatConsole switches to zerolog's human readable writer for interactive runs.
	FormatConsole = "console"
)

func SetupLogging() {
	zerolog.LevelFieldName = "level_name"
	zerolog.TimestampFieldName = "timestamp"
}

// ParseLevel maps a SOAR_LOGLEVEL value onto a zerolog level. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case LOG_LEVEL_DEBUG:
		return zerolog.DebugLevel
	case LOG_LEVEL_WARN:
		return zerolog.WarnLevel
	case LOG_LEVEL_ERROR:
		return zerolog.ErrorLevel
	case LOG_LEVEL_FATAL:
		return zerolog.FatalLevel
	case LOG_LEVEL_PANIC:
		return zerolog.PanicLevel
	}
	return zerolog.InfoLevel
}

func NewLogger(component string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if os.Getenv(FormatEnvVar) == FormatConsole {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return newLogger(out, component)
}

func newLogger(out io.Writer, component string) zerolog.Logger {
	level, ok := os.LookupEnv(LevelEnvVar)
	if !ok {
		level = LOG_LEVEL_INFO
	}

	return zerolog.New(out).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(ParseLevel(level))
}
