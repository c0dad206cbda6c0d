package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on rs/zerolog. Every entry carries the
// component that produced it.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger writes JSON to stdout, or human-readable lines when
// APP_ENV=dev.
func NewZerologLogger(component string) Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewZerologLoggerTo(w, component)
}

// NewZerologLoggerTo writes JSON entries to w.
func NewZerologLoggerTo(w io.Writer, component string) *ZerologLogger {
	return &ZerologLogger{log: zerolog.New(w).With().Timestamp().Str("component", component).Logger()}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

// Debugw logs structured decision data such as zone pass sizes or
// preemption victims.
func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

// Errorf also attaches the first error argument as the "error" field and,
// for domain errors, its code.
func (l *ZerologLogger) Errorf(format string, args ...any) {
	ev := l.log.Error()
	for _, a := range args {
		if err, ok := a.(error); ok {
			ev = ev.Err(err)
			var coded interface{ ErrorCode() string }
			if errors.As(err, &coded) {
				ev = ev.Str("code", coded.ErrorCode())
			}
			break
		}
	}
	ev.Msgf(format, args...)
}
