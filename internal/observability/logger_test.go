// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

// captureStdout swaps os.Stdout for a pipe so console log output can be
// inspected. The logger must be initialized after the swap, since the
// console core binds its writer at initialization.
func captureStdout(t *testing.T) (*bytes.Buffer, func()) {
	t.Helper()
	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	cleanup := func() {
		w.Close()
		<-done
		os.Stdout = original
	}
	return &buf, cleanup
}

func TestInitializeLogger(t *testing.T) {
	t.Run("should colorize console output", func(t *testing.T) {
		ResetForTest()
		buf, cleanup := captureStdout(t)

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "wayfarer-test",
			Colors:      config.ColorConfig{Info: "green"},
		}
		InitializeLogger(cfg)
		GetLogger().Info("Console message under test")
		Sync()
		cleanup()

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "Console message under test")
		assert.Contains(t, output, "wayfarer-test.", "named loggers get a trailing dot in console form")
		assert.Contains(t, output, colorGreen, "info lines are colorized green")
		assert.Contains(t, output, colorReset)
	})

	t.Run("should emit structured JSON", func(t *testing.T) {
		ResetForTest()
		buf, cleanup := captureStdout(t)

		InitializeLogger(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "wayfarer-json",
		})
		GetLogger().Warn("Search results were empty", zap.String("stage_name", "results"))
		Sync()
		cleanup()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output should be one JSON object")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "wayfarer-json", entry["logger"])
		assert.Equal(t, "Search results were empty", entry["msg"])
		assert.Equal(t, "results", entry["stage_name"])
	})

	t.Run("should tee into the configured log file", func(t *testing.T) {
		ResetForTest()
		logPath := filepath.Join(t.TempDir(), "wayfarer.log")

		InitializeLogger(config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logPath,
			MaxSize: 1,
		})
		GetLogger().Error("This should land in the file")
		Sync()

		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should land in the file")
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		buf, cleanup := captureStdout(t)

		InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "first"})
		first := GetLogger()
		InitializeLogger(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "second"})
		second := GetLogger()

		assert.Same(t, first, second, "the second initialization must be ignored")
		second.Info("Logged after the second initialization")
		Sync()
		cleanup()

		assert.Contains(t, buf.String(), "first.")
		assert.NotContains(t, buf.String(), "second.")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("should hand back a usable fallback before initialization", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
		// The fallback must not become the global instance.
		assert.Nil(t, globalLogger.Load())
	})

	t.Run("should return the stored instance after initialization", func(t *testing.T) {
		ResetForTest()
		InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "global-test"})

		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}

func TestSync(t *testing.T) {
	t.Run("should be a no-op before initialization", func(t *testing.T) {
		ResetForTest()
		Sync()
	})
}
