package common

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	LogFormatPlain = "plain"
	LogFormatJSON  = "json"

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelError = "error"
)

// Logger is what the benchmark components take for diagnostics. Report lines
// never go through it.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})

	With(keyvals ...interface{}) Logger
}

type defaultLogger struct {
	zerolog.Logger
}

// NewDefaultLogger returns a zerolog backed logger writing to w.
func NewDefaultLogger(w io.Writer, format, level string) (Logger, error) {
	var out io.Writer
	switch strings.ToLower(format) {
	case LogFormatPlain, "text":
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	case LogFormatJSON:
		out = w
	default:
		return nil, fmt.Errorf("%w: unsupported log format: %s", ErrInvalidConfig, format)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse log level (%s): %v", ErrInvalidConfig, level, err)
	}

	return &defaultLogger{
		Logger: zerolog.New(out).Level(lvl).With().Timestamp().Logger(),
	}, nil
}

func NewNopLogger() Logger {
	return &defaultLogger{Logger: zerolog.Nop()}
}

func (l *defaultLogger) Debug(msg string, keyvals ...interface{}) {
	l.Logger.Debug().Fields(logFields(keyvals)).Msg(msg)
}

func (l *defaultLogger) Info(msg string, keyvals ...interface{}) {
	l.Logger.Info().Fields(logFields(keyvals)).Msg(msg)
}

func (l *defaultLogger) Error(msg string, keyvals ...interface{}) {
	l.Logger.Error().Fields(logFields(keyvals)).Msg(msg)
}

func (l *defaultLogger) With(keyvals ...interface{}) Logger {
	return &defaultLogger{Logger: l.Logger.With().Fields(logFields(keyvals)).Logger()}
}

func logFields(keyvals []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fields[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}
	if len(keyvals)%2 == 1 {
		fields["EXTRA_VALUE_AT_END"] = keyvals[len(keyvals)-1]
	}
	return fields
}
