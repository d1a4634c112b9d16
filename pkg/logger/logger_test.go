package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLines(buf *bytes.Buffer) []map[string]interface{} {
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			lines = append(lines, m)
		}
	}
	return lines
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		log       func(Logger)
		want      []string
		unwanted  []string
	}{
		{
			name:      "info level by default",
			verbosity: 0,
			log: func(l Logger) {
				l.Debug("debug msg")
				l.Info("info msg")
				l.Warn("warn msg")
			},
			want:     []string{"info msg", "warn msg"},
			unwanted: []string{"debug msg"},
		},
		{
			name:      "debug enabled at verbosity 1",
			verbosity: 1,
			log: func(l Logger) {
				l.Debug("debug msg")
				l.Trace("trace msg")
			},
			want:     []string{"debug msg"},
			unwanted: []string{"trace msg"},
		},
		{
			name:      "trace enabled at verbosity 2",
			verbosity: 2,
			log: func(l Logger) {
				l.Trace("trace msg")
			},
			want: []string{"TRACE: trace msg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewLogger(Config{Verbosity: tt.verbosity, Output: &buf})
			tt.log(log)

			out := buf.String()
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.unwanted {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Output: &buf})

	log.WithFields(Fields{"component": "cache", "keys": 3}).Info("flush complete")

	lines := logLines(&buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "flush complete", lines[0]["message"])
	assert.Equal(t, "cache", lines[0]["component"])
	assert.Equal(t, float64(3), lines[0]["keys"])
}

func TestLoggerFieldsDoNotLeakToParent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Output: &buf})

	_ = log.WithFields(Fields{"scoped": true})
	log.Info("plain")

	lines := logLines(&buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["scoped"]
	assert.False(t, ok)
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	// Must not panic, and WithFields must stay usable.
	log.WithFields(Fields{"a": 1}).Info("discarded")
	log.Error("discarded too")
}
