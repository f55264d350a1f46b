package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCriticalLevelIsRenamed(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "json")

	log.Critical("app: init failed", "attempt", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "CRITICAL", line["level"])
	require.Equal(t, "app: init failed", line["msg"])
}

func TestBusinessErrorLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug, "json").With("component", "tracking")

	log.BusinessError("tracking.start_feeding: already open", errors.New("feeding session already open"), "baby_id", "b1")
	log.BusinessError("ignored", nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "WARN", line["level"])
	require.Equal(t, "feeding session already open", line["err"])
	require.Equal(t, "b1", line["baby_id"])
	require.Equal(t, "tracking", line["component"])
}

func TestParseLevelDefaults(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("", "development"))
	require.Equal(t, slog.LevelInfo, parseLevel("", "production"))
	require.Equal(t, LevelCritical, parseLevel("fatal", "production"))
	require.Equal(t, "json", parseFormat("xml"))
}
