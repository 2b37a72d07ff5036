package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadSettings_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "MDTRACE_API_KEY", "RENDER_WORKERS", "MAX_BODY_BYTES", "RUN_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	s := LoadSettings()
	if s.Port != "8090" || s.APIKey != "" || s.RenderWorkers != 4 || s.MaxBodyBytes != 16<<20 ||
		s.RunTTL != time.Hour || s.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected defaults %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MDTRACE_API_KEY", "k")
	t.Setenv("RENDER_WORKERS", "-3")
	t.Setenv("MAX_BODY_BYTES", "1024")
	t.Setenv("RUN_TTL", "10m")
	t.Setenv("LOG_LEVEL", "debug")

	s := LoadSettings()
	if s.Port != "9000" || s.APIKey != "k" || s.MaxBodyBytes != 1024 || s.RunTTL != 10*time.Minute {
		t.Errorf("unexpected settings %+v", s)
	}
	if s.RenderWorkers != 4 {
		t.Errorf("expected non-positive workers to fall back to 4, got %d", s.RenderWorkers)
	}
	if s.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", s.LogLevel)
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := (Settings{Port: "abc"}).Validate(); err == nil {
		t.Error("expected error for non-numeric port")
	}
	if err := (Settings{}).Validate(); err == nil {
		t.Error("expected error for empty port")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" WARN ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
