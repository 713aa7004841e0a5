package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestCleanupFailed_LogsBothErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelDebug).WithComponent("unit_of_work")

	l.CleanupFailed("rollback", errors.New("insert failed"), errors.New("connection reset"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "unit_of_work", entry["component"])
	assert.Equal(t, "rollback", entry["stage"])
	assert.Equal(t, "insert failed", entry["primary_error"])
	assert.Equal(t, "connection reset", entry["error"])
}

func TestDebugEventsRespectLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)

	l.SessionOpened()
	l.TransactionCommitted()

	assert.Empty(t, buf.String())
}
