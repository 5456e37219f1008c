package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	plannererrors "github.com/felixgeelhaar/studyplan/internal/errors"
)

func newBufferLogger(buf *bytes.Buffer, level Level) *Logger {
	return New(Config{
		Level:       level,
		Format:      FormatJSON,
		Output:      NewOutput(buf),
		ServiceName: "studyplan",
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log line %q: %v", line, err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"loud", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != FormatJSON || ParseFormat("JSON") != FormatJSON {
		t.Error("expected json to parse as FormatJSON")
	}
	if ParseFormat("text") != FormatText || ParseFormat("whatever") != FormatText {
		t.Error("expected everything else to parse as FormatText")
	}
	if FormatJSON.String() != "json" || FormatText.String() != "text" {
		t.Error("unexpected format names")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelWarn {
		t.Errorf("DefaultConfig.Level = %v, want %v", cfg.Level, LevelWarn)
	}
	if cfg.Output.Writer() != os.Stderr {
		t.Error("DefaultConfig should log to stderr")
	}

	dev := DevelopmentConfig()
	if dev.Level != LevelDebug || !dev.AddSource {
		t.Error("DevelopmentConfig should log debug with source")
	}

	prod := ProductionConfig()
	if prod.Level != LevelInfo || prod.Format != FormatJSON {
		t.Error("ProductionConfig should log info as JSON")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelWarn)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("server logout failed", "path", "/api/auth/logout/")
	entry := decodeLine(t, &buf)
	if entry["msg"] != "server logout failed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["path"] != "/api/auth/logout/" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["service"] != "studyplan" {
		t.Errorf("service = %v", entry["service"])
	}
}

func TestWithErrorCodedError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelDebug)

	err := plannererrors.NewSessionExpiredError(errors.New("401"))
	logger.WithError(err).Error("request failed")

	entry := decodeLine(t, &buf)
	if entry["error_code"] != "AUTH-004" {
		t.Errorf("error_code = %v", entry["error_code"])
	}
	if entry["cause"] != "401" {
		t.Errorf("cause = %v", entry["cause"])
	}
	if _, ok := entry["suggestions"]; !ok {
		t.Error("expected suggestions")
	}
}

func TestWithErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelDebug)

	logger.WithError(errors.New("plain")).Warn("oops")
	entry := decodeLine(t, &buf)
	if entry["error"] != "plain" {
		t.Errorf("error = %v", entry["error"])
	}

	if logger.WithError(nil) != logger {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestWithContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelDebug)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	logger.WithContext(ctx).Debug("request sent")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v", entry["request_id"])
	}

	if _, ok := RequestIDFrom(context.Background()); ok {
		t.Error("expected no request ID in empty context")
	}
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "studyplan.log")

	out, f, err := OutputFile(path)
	if err != nil {
		t.Fatalf("OutputFile() error = %v", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	cfg.Output = out
	New(cfg).Error("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestDefaultLogger(t *testing.T) {
	original := process.Load()
	originalSlog := slog.Default()
	defer func() {
		process.Store(original)
		slog.SetDefault(originalSlog)
	}()

	process.Store(nil)
	if DefaultLogger() == nil {
		t.Fatal("DefaultLogger returned nil when no default was set")
	}

	var buf bytes.Buffer
	custom := newBufferLogger(&buf, LevelInfo)
	SetDefaultLogger(custom)
	if DefaultLogger() != custom {
		t.Error("DefaultLogger did not return the custom logger")
	}

	slog.Info("routed through slog")
	if !strings.Contains(buf.String(), "routed through slog") {
		t.Errorf("slog default not routed to the process logger: %q", buf.String())
	}

	SetDefaultLogger(nil)
	if DefaultLogger() == nil {
		t.Error("SetDefaultLogger(nil) left no logger")
	}
}
