package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"gatewire/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(config.LoggingConfig{}, &buf, false))
	logger.Info("hello", "provider", "openai")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "hello" || rec["provider"] != "openai" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewHandler_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(config.LoggingConfig{Format: "text"}, &buf, false))
	logger.Info("hello", "provider", "openai")

	line := buf.String()
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text output, got %q", line)
	}
	if !strings.Contains(line, "hello") || !strings.Contains(line, "provider=openai") {
		t.Errorf("missing fields in %q", line)
	}
	if strings.Contains(line, "\033[") {
		t.Errorf("colors must be off when not on a terminal: %q", line)
	}
}

func TestNewHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(config.LoggingConfig{Format: "json", Level: "warn"}, &buf, true))
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn should be logged, got %q", buf.String())
	}
}
