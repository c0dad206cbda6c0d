// Package logger provides the zerolog-backed implementation of the core
// logging interface.
package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
)

type Logger = corelogger.Logger

type NopLogger = corelogger.Nop

// New returns a component logger writing to stderr. APP_ENV=dev switches
// to human-readable console output.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// SetLevel sets the process-wide minimum level. Blank keeps the current
// level; "warning" is accepted for "warn".
func SetLevel(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return nil
	case "warning":
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
