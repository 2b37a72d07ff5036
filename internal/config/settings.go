package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings are process-level options read from the environment. They never
// change trace output.
type Settings struct {
	Port string

	// Auth. Empty disables bearer-token checks.
	APIKey string

	// Pass-2 rendering parallelism.
	RenderWorkers int

	// Request limits
	MaxBodyBytes int64

	// Run history
	RunTTL time.Duration

	LogLevel slog.Level
}

func LoadSettings() Settings {
	s := Settings{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MDTRACE_API_KEY"),

		RenderWorkers: envInt("RENDER_WORKERS", 4),

		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 16<<20), // 16MB

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if s.RenderWorkers <= 0 {
		s.RenderWorkers = 4
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = 16 << 20
	}
	if s.RunTTL <= 0 {
		s.RunTTL = 1 * time.Hour
	}

	return s
}

func (s Settings) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(s.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", s.Port)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		if l, err := ParseLevel(v); err == nil {
			return l
		}
	}
	return fallback
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
