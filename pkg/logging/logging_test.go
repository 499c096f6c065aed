package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"DEBUG", LevelDebug},
		{"Warning", LevelWarn},
		{"dEbUg", LevelDebug},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFormat(tt.input))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	logger.Info("dropped")
	logger.Warn("no match", "method", "GET", "path", "/users")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "no match", record["msg"])
	assert.Equal(t, "GET", record["method"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: LevelDebug, Output: &buf}).Debug("consumed", "id", "abc")
	assert.Contains(t, buf.String(), "msg=consumed id=abc")
}

func TestNop(t *testing.T) {
	logger := Nop()
	assert.False(t, logger.Enabled(t.Context(), LevelError))
	logger.Error("ignored")
}

type fakeTB struct {
	lines    []string
	cleanups []func()
}

func (f *fakeTB) Helper()                         {}
func (f *fakeTB) Logf(format string, args ...any) { f.lines = append(f.lines, fmt.Sprintf(format, args...)) }
func (f *fakeTB) Cleanup(fn func())               { f.cleanups = append(f.cleanups, fn) }

func TestForTest(t *testing.T) {
	tb := &fakeTB{}
	logger := ForTest(tb, LevelInfo)

	logger.Debug("hidden")
	logger.Info("replied", "status", 200)
	require.Len(t, tb.lines, 1)
	assert.Contains(t, tb.lines[0], "msg=replied status=200")
	assert.False(t, strings.HasSuffix(tb.lines[0], "\n"))

	for _, fn := range tb.cleanups {
		fn()
	}
	logger.Info("late")
	assert.Len(t, tb.lines, 1)
}
