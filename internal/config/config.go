// Package config loads supportdesk settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// Support backend
	APIURL        string
	ClientID      string
	ClientTimeout time.Duration

	// Notification poller
	PollInterval time.Duration

	// Persisted client state (token, theme)
	StateFile string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Development backend
	DevPort     string
	DevEmail    string
	DevPassword string
}

// DefaultPollInterval matches the admin header's ten second refresh.
const DefaultPollInterval = 10 * time.Second

// Load reads configuration from environment variables. Variables found in
// .env files in the working directory are applied first; real environment
// variables take precedence.
func Load() Config {
	loadEnvFiles(".env", ".env.local")

	return Config{
		APIURL:        strings.TrimRight(getEnv("SUPPORTDESK_API_URL", "http://localhost:8000"), "/"),
		ClientID:      getEnv("SUPPORTDESK_CLIENT_ID", ""),
		ClientTimeout: parseDuration(getEnv("SUPPORTDESK_CLIENT_TIMEOUT", ""), 30*time.Second),

		PollInterval: parseDuration(getEnv("SUPPORTDESK_POLL_INTERVAL", ""), DefaultPollInterval),

		StateFile: getEnv("SUPPORTDESK_STATE_FILE", defaultStateFile()),

		LogFile:  getEnv("SUPPORTDESK_LOG_FILE", filepath.Join(os.TempDir(), "supportdesk.log")),
		LogLevel: parseLogLevel(getEnv("SUPPORTDESK_LOG_LEVEL", "INFO")),

		DevPort:     getEnv("SUPPORTDESK_DEV_PORT", "8000"),
		DevEmail:    getEnv("SUPPORTDESK_DEV_EMAIL", "admin@example.com"),
		DevPassword: getEnv("SUPPORTDESK_DEV_PASSWORD", "admin123"),
	}
}

// loadEnvFiles applies the files that exist; missing files are not an error.
func loadEnvFiles(files ...string) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return
	}
	if err := godotenv.Load(existing...); err != nil {
		slog.Warn("failed to load env files", "files", existing, "error", err)
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "supportdesk", "state.yaml")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
