package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// setupTestLogger routes the package logger into buf.
func setupTestLogger(buf *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(buf).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("pdf uploaded", "path", "/relay/x.pdf", "bytes", 42)

	out := buf.String()
	assert.Contains(t, out, "pdf uploaded")
	assert.Contains(t, out, `"path":"/relay/x.pdf"`)
	assert.Contains(t, out, `"bytes":42`)
}

func TestErrorLogging_FormatsErrors(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "error")

	Error("upload failed", "error", errors.New("request failed with status code 409"))

	assert.Contains(t, buf.String(), `"error":"request failed with status code 409"`)
}

func TestWarnFilteredBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "error")

	Warn("should not appear")

	assert.Empty(t, buf.String())
}

func TestDebugOnlyAtDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")
	Debug("hidden")
	assert.Empty(t, buf.String())

	setupTestLogger(&buf, "debug")
	Debug("request rejected", "missing", "fileName")
	assert.Contains(t, buf.String(), `"missing":"fileName"`)
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	assert.Contains(t, buf.String(), "should be visible")
}

func TestDanglingKeyIsDropped(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("hello", "k", "v", "dangling")

	out := buf.String()
	assert.Contains(t, out, `"k":"v"`)
	assert.NotContains(t, out, "dangling")
}

func TestInitLoggerWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "relay.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	Info("written to file", "k", "v")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("expected log line in file, got %q", string(data))
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "<unset>", Mask("", 4))
	assert.Equal(t, "***", Mask("abc", 4))
	assert.Equal(t, "sl.A...", Mask("sl.ABCDEFG", 4))
}
