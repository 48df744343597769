package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/giygas/iyakuhin-supply/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetConsoleLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		level    string
		expected slog.Level
	}{
		{"dev defaults to info", config.EnvDevelopment, "", slog.LevelInfo},
		{"test is quiet", config.EnvTest, "debug", slog.LevelError},
		{"prod defaults to warn", config.EnvProduction, "", slog.LevelWarn},
		{"staging defaults to warn", config.EnvStaging, "", slog.LevelWarn},
		{"prod with debug override", config.EnvProduction, "debug", slog.LevelDebug},
		{"dev with error override", config.EnvDevelopment, "error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetConsoleLogLevel(tt.env, tt.level)
			if got != tt.expected {
				t.Errorf("GetConsoleLogLevel(%q, %q) = %v, want %v", tt.env, tt.level, got, tt.expected)
			}
		})
	}
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	InitLogger(Options{
		Env:            config.EnvTest,
		Level:          "info",
		Dir:            dir,
		RetentionWeeks: 4,
		MaxFileSize:    1024 * 1024,
	})
	defer func() {
		_ = Close()
		DefaultLoggingService = nil
	}()

	Info("workbook parsed", "rows", 42)
	Debug("not written at info level")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "supply-*.log"))
	if len(files) != 1 {
		t.Fatalf("Expected 1 log file, got %d", len(files))
	}

	content, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"workbook parsed"`) || !strings.Contains(string(content), `"rows":42`) {
		t.Errorf("Expected JSON log line, got %s", content)
	}
	if strings.Contains(string(content), "not written") {
		t.Error("Debug message should be filtered at info level")
	}
}

func TestPackageHelpersWithoutInit(t *testing.T) {
	DefaultLoggingService = nil
	// Must not panic when the logger was never initialized
	Info("info")
	Warn("warn")
	Error("error")
	Debug("debug")
}
