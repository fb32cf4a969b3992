package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	Log(validSettings())
}

func TestLogWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Hosts = []string{"/data/a", "/data/b"}
	LogWithLogger(s, logger)

	output := buf.String()
	for _, want := range []string{"Config: hosts", "/data/a", "Config: index", "yari_doc", "Config: state_dir", "Config: search.size"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output, got %s", want, output)
		}
	}
	// Debug-level entries are filtered at the default info level
	if strings.Contains(output, "mcp.name") {
		t.Error("Expected no debug entries at info level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelWarn, false},
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"ERROR", slog.LevelError, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	s := validSettings()
	s.LogLevel = "warn"

	logger := NewLogger(&buf, s)
	logger.Info("hidden")
	logger.Warn("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("Expected info to be filtered at warn level")
	}
	if !strings.Contains(output, "shown") {
		t.Error("Expected warn to be logged")
	}
}
