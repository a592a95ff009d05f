package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*GuardLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = &buf
	return NewLogger(cfg), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestGuardLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept", "k", 1)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.EqualValues(t, 1, lines[0]["k"])
}

func TestGuardLogger_ContextAttrs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	scoped := l.WithComponent("budget").WithExecution("exec-1").WithContext("agent", "a1")
	scoped.Info("hello")
	l.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "budget", lines[0]["component"])
	assert.Equal(t, "exec-1", lines[0]["execution_id"])
	assert.Equal(t, "a1", lines[0]["agent"])
	assert.NotContains(t, lines[1], "component")
	assert.NotContains(t, lines[1], "agent")
}

func TestGuardLogger_CallHelpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)

	l.LogGuardedCall("gpt-4o-mini", 42, time.Millisecond, nil)
	l.LogToolCall("search", time.Millisecond, errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "guarded call completed", lines[0]["msg"])
	assert.EqualValues(t, 42, lines[0]["token_count"])
	assert.Equal(t, "tool execution failed", lines[1]["msg"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, false, lines[1]["success"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("nope"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}
