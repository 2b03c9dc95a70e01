package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bioask/pkg/config"
)

func TestInitCreatesLogFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "logs", "bioask.log")

	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogFormat = "json"
	cfg.LogLevel = "info"

	logger, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	logger.Info("hello", slog.String("component", "test"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Expected log file to have content")
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("Expected log to contain message, got: %s", string(data))
	}
}

func TestInitTraceLevel(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "trace.log")

	cfg := config.Default()
	cfg.LogFile = logPath
	cfg.LogFormat = "text"
	cfg.LogLevel = "trace"

	logger, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if !logger.Enabled(context.Background(), LevelTrace) {
		t.Fatal("Expected trace level to be enabled")
	}

	logger.Log(context.Background(), LevelTrace, "chat_stream_prompt")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), "level=TRACE") {
		t.Fatalf("Expected TRACE level name, got: %s", string(data))
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"trace":   LevelTrace,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range tests {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
