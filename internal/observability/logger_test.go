// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Kisii856/task-automation-platform/internal/config"
)

func bufferSink() (*bytes.Buffer, zapcore.WriteSyncer) {
	var buf bytes.Buffer
	return &buf, zapcore.AddSync(&buf)
}

func TestNewLogger(t *testing.T) {
	t.Run("console output is colorized and named", func(t *testing.T) {
		buf, sink := bufferSink()
		logger, err := NewLogger(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "taskflow",
			Colors:      config.ColorConfig{Info: "green"},
		}, sink)
		require.NoError(t, err)

		logger.Named("engine").Info("Run started.", zap.Int("steps", 3))
		require.NoError(t, logger.Sync())

		out := buf.String()
		assert.Contains(t, out, colorMap["green"]+"INFO"+colorReset)
		assert.Contains(t, out, "taskflow.engine.")
		assert.Contains(t, out, "Run started.")
		assert.Contains(t, out, `"steps": 3`)
	})

	t.Run("uncolored levels print plainly", func(t *testing.T) {
		buf, sink := bufferSink()
		logger, err := NewLogger(config.LoggerConfig{Level: "info", Format: "console"}, sink)
		require.NoError(t, err)

		logger.Warn("plain")
		require.NoError(t, logger.Sync())
		assert.Contains(t, buf.String(), "WARN")
		assert.NotContains(t, buf.String(), colorReset)
	})

	t.Run("json output", func(t *testing.T) {
		buf, sink := bufferSink()
		logger, err := NewLogger(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, sink)
		require.NoError(t, err)

		logger.Warn("This is a JSON message.", zap.String("key", "value"))
		require.NoError(t, logger.Sync())

		var entry map[string]interface{}
		require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &entry), "log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "This is a JSON message.", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("level filters entries", func(t *testing.T) {
		buf, sink := bufferSink()
		logger, err := NewLogger(config.LoggerConfig{Level: "warn", Format: "json"}, sink)
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Error("shown")
		require.NoError(t, logger.Sync())
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, sink := bufferSink()
		_, err := NewLogger(config.LoggerConfig{Level: "loud"}, sink)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid log level "loud"`)
	})

	t.Run("file output is JSON", func(t *testing.T) {
		_, sink := bufferSink()
		path := filepath.Join(t.TempDir(), "taskflow.log")
		logger, err := NewLogger(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, sink)
		require.NoError(t, err)

		logger.Error("This should go to the file.")
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, jsoniter.Valid(bytes.TrimSpace(content)), "file entries are JSON")
		assert.Contains(t, string(content), "This should go to the file.")
	})
}

func TestInitialize(t *testing.T) {
	t.Run("only initializes once", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf, sink := bufferSink()

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "First"}, sink)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, sink)
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		Sync()
		assert.True(t, strings.Contains(buf.String(), "First"))
		assert.False(t, strings.Contains(buf.String(), "Second"))
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		buf, sink := bufferSink()

		Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, sink)
		logger := GetLogger()
		logger.Debug("hidden")
		logger.Info("shown")
		Sync()
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("fallback before initialization", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("global logger after initialization", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		_, sink := bufferSink()
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"}, sink)
		assert.Equal(t, globalLogger.Load(), GetLogger())
	})
}
