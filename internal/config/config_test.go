package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CANCEL_MATCH_MODE", "")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "")
	t.Setenv("PHONE_COUNTRY_CODE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.CancelMatchMode != "exact" {
		t.Fatalf("expected exact cancel matching by default, got %s", cfg.CancelMatchMode)
	}
	if cfg.ReminderSweepInterval != 15*time.Minute {
		t.Fatalf("expected default sweep interval, got %s", cfg.ReminderSweepInterval)
	}
	if cfg.PhoneCountryCode != "7" {
		t.Fatalf("expected default country code 7, got %s", cfg.PhoneCountryCode)
	}
	if cfg.GreenAPIURL != "https://api.green-api.com" {
		t.Fatalf("unexpected green api url %s", cfg.GreenAPIURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CANCEL_MATCH_MODE", " Contains ")
	t.Setenv("REMINDER_SWEEP_INTERVAL", "5m")
	t.Setenv("REMINDER_CONCURRENCY", "8")
	t.Setenv("GREEN_API_URL", "https://7103.api.greenapi.com/")
	t.Setenv("GREEN_API_INSTANCE_ID", "1101000001")
	t.Setenv("GREEN_API_TOKEN", "token")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://book.example.kz, ,https://admin.example.kz")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.CancelMatchMode != "contains" {
		t.Fatalf("expected normalized cancel mode, got %q", cfg.CancelMatchMode)
	}
	if cfg.ReminderSweepInterval != 5*time.Minute {
		t.Fatalf("expected sweep interval override, got %s", cfg.ReminderSweepInterval)
	}
	if cfg.ReminderConcurrency != 8 {
		t.Fatalf("expected concurrency override, got %d", cfg.ReminderConcurrency)
	}
	if cfg.GreenAPIURL != "https://7103.api.greenapi.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.GreenAPIURL)
	}
	if !cfg.GreenAPIConfigured() {
		t.Fatalf("expected green api configured")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.kz" {
		t.Fatalf("expected two trimmed origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REMINDER_CONCURRENCY", "many")
	t.Setenv("REMINDER_SEND_TIMEOUT", "soon")
	t.Setenv("WHATSAPP_ENABLED", "maybe")
	cfg := Load()
	if cfg.ReminderConcurrency != 4 {
		t.Fatalf("expected default concurrency, got %d", cfg.ReminderConcurrency)
	}
	if cfg.ReminderSendTimeout != 20*time.Second {
		t.Fatalf("expected default send timeout, got %s", cfg.ReminderSendTimeout)
	}
	if cfg.WhatsAppEnabled {
		t.Fatalf("expected whatsapp disabled on invalid bool")
	}
}
