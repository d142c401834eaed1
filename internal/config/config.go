// Package config loads service configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server needs to start.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	MailQueueSize  int
	AllowedOrigins []string
	AuditLogPath   string
	LogLevel       string
}

// Default returns the configuration used when nothing is set. The JWT secret
// it carries is for development only.
func Default() *Config {
	return &Config{
		HTTPAddr:       ":8080",
		JWTSecret:      "dev-secret-change-me",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
		SMTPPort:       587,
		MailQueueSize:  128,
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AccessTTL = getEnvDuration("ACCESS_TOKEN_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = getEnvDuration("REFRESH_TOKEN_TTL", cfg.RefreshTTL)

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")

	cfg.MailQueueSize = getEnvInt("MAIL_QUEUE_SIZE", cfg.MailQueueSize)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}
	cfg.AuditLogPath = os.Getenv("AUDIT_LOG_PATH")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
