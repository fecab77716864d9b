package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSetupTextFormat(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "info", Format: "text", Output: &buf})

	slog.Info("hello", "code", "ABCDEF")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("log output missing message: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "ABCDEF") {
		t.Errorf("log output missing attr: %q", buf.String())
	}
}

func TestSetupJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "debug", Format: "json", Output: &buf})

	slog.Debug("trace")
	if !strings.Contains(buf.String(), `"msg":"trace"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "warn", Output: &buf})

	slog.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	slog.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn not logged at warn level")
	}
}
