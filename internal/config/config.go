package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	BaseURL         string // public base URL used for student join links in QR codes
	DatabaseURL     string
	VoicesConfig    string // optional YAML file with voice presets
	SessionTTLHours int
	LogLevel        string
	LogFormat       string
}

func Load() Config {
	// Load a .env file if present; real environment variables win.
	_ = godotenv.Load()

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		BaseURL:         os.Getenv("BASE_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		VoicesConfig:    os.Getenv("VOICES_CONFIG"),
		SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 3),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
