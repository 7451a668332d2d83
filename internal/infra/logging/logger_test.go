package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// setupTestLogger configures a logger with a custom writer for tests
func setupTestLogger(output *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("render done", "width", 512, "inline", true)

	out := buf.String()
	if !strings.Contains(out, "render done") {
		t.Error("Expected log message not found in output")
	}
	if !strings.Contains(out, `"width":512`) || !strings.Contains(out, `"inline":true`) {
		t.Error("Expected key-value pairs not found in output")
	}
}

func TestErrorValuesAreLoggedAsStrings(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Warn("delete failed", "error", errors.New("boom"))

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %s", buf.String())
	}
}

func TestDebugFilteredAtInfo(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	if !strings.Contains(buf.String(), "should be visible") {
		t.Error("Expected info log after SetLogLevel not found")
	}
}

func TestDanglingKeyAndInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLoggerForTest(zerolog.New(&buf))

	SetLogLevel("invalid-level")
	Info("hello", "k", "v", "dangling")
	Error("err", "ok", true)

	if buf.Len() == 0 {
		t.Fatalf("expected log output")
	}
	if strings.Contains(buf.String(), "dangling") {
		t.Fatalf("dangling key should be dropped: %s", buf.String())
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "svgrender.log")
	InitLogger(logFile, 1, 1, 1, false, "info")
	Info("to file", "k", "v")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("expected message in log file, got %q", string(data))
	}
}
