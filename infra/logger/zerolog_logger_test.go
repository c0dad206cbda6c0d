package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &m))
	return m
}

func TestZerologLoggerFields(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	l := NewZerologLoggerTo(&buf, "dispatch")

	l.Debugw("zone packed", map[string]any{"zone": "Z1", "assigned": 2})
	e := lastEntry(t, &buf)
	assert.Equal(t, "dispatch", e["component"])
	assert.Equal(t, "Z1", e["zone"])
	assert.Equal(t, float64(2), e["assigned"])

	l.Infof("pass %s done", "p1")
	assert.Equal(t, "pass p1 done", lastEntry(t, &buf)["message"])

	err := fmt.Errorf("commit: %w", apperr.New(apperr.ErrConcurrentUpdate, "driver d1 changed"))
	l.Errorf("assign %s: %v", "T1", err)
	e = lastEntry(t, &buf)
	assert.Equal(t, "error", e["level"])
	assert.Equal(t, "concurrent_update", e["code"])
	assert.Contains(t, e["error"], "driver d1 changed")
}

func TestZerologLoggerConsole(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Warnf("warn")
	l.Errorf("no error argument")
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLevel("debug") })
	assert.NoError(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.NoError(t, SetLevel(""))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.NoError(t, SetLevel(" Warning "))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.NoError(t, SetLevel("ERROR"))
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	assert.Error(t, SetLevel("loud"))
}

func TestNopLoggerSatisfiesInterface(t *testing.T) {
	var l Logger = NopLogger{}
	l.Infof("ignored %d", 1)
}
