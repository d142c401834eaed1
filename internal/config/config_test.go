package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("addr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl = %v, want 15m", cfg.AccessTTL)
	}
	if cfg.MailQueueSize != 128 {
		t.Fatalf("queue size = %d, want 128", cfg.MailQueueSize)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("addr = %q, want :9999", cfg.HTTPAddr)
	}
	if cfg.AccessTTL != 30*time.Minute {
		t.Fatalf("access ttl = %v, want 30m", cfg.AccessTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("redis db = %d, want 3", cfg.RedisDB)
	}
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl = %v, want fallback 15m", cfg.AccessTTL)
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("smtp port = %d, want fallback 587", cfg.SMTPPort)
	}
}
