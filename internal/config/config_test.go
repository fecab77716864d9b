package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL_HOURS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionTTLHours != 3 {
		t.Errorf("SessionTTLHours = %d, want 3", cfg.SessionTTLHours)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/lese")
	t.Setenv("SESSION_TTL_HOURS", "6")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/lese" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.SessionTTLHours != 6 {
		t.Errorf("SessionTTLHours = %d, want 6", cfg.SessionTTLHours)
	}
}

func TestGetEnvIntInvalid(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "not-a-number")

	cfg := Load()
	if cfg.SessionTTLHours != 3 {
		t.Errorf("SessionTTLHours = %d, want fallback 3", cfg.SessionTTLHours)
	}
}
