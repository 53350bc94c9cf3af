package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port            string
	AllowedOrigins  []string
	LogLevel        string
	DatabaseURL     string
	DatabaseReadURL string // Read replica URL for SELECT queries
	RedisURL        string
	Environment     string

	// AppURL is the public origin used to build magic links and redirects
	AppURL        string
	SessionSecret string
	SessionTTL    time.Duration
	MagicLinkTTL  time.Duration

	SendGridAPIKey string
	SendGridHost   string
	EmailFrom      string
	AdminEmails    []string

	// SeasonWeeks caps weekly survival points. Zero means no cap.
	SeasonWeeks   int
	MaxPhotoBytes int64

	SweepSchedule string

	// TrustProxy honours X-Forwarded-For / X-Real-IP for client addresses
	TrustProxy bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigins:  parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseReadURL: getEnv("DATABASE_READ_URL", getEnv("DATABASE_URL", "")), // Falls back to write DB if not set
		RedisURL:        getEnv("REDIS_URL", ""),
		Environment:     getEnv("ENVIRONMENT", "production"),
		AppURL:          strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionTTL:      getDurationEnv("SESSION_TTL", 30*24*time.Hour),
		MagicLinkTTL:    getDurationEnv("MAGIC_LINK_TTL", 24*time.Hour),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		SendGridHost:    getEnv("SENDGRID_HOST", ""),
		EmailFrom:       getEnv("EMAIL_FROM", "noreply@bbfantasy.app"),
		AdminEmails:     parseList(strings.ToLower(getEnv("ADMIN_EMAILS", ""))),
		SeasonWeeks:     getIntEnv("SEASON_WEEKS", 0),
		MaxPhotoBytes:   int64(getIntEnv("MAX_PHOTO_BYTES", 5<<20)),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@hourly"),
		TrustProxy:      getBoolEnv("TRUST_PROXY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the server unusable
func (c *Config) Validate() error {
	if c.Environment == "production" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters in production")
	}
	if c.SeasonWeeks < 0 {
		return fmt.Errorf("SEASON_WEEKS must not be negative")
	}
	if c.MaxPhotoBytes <= 0 {
		return fmt.Errorf("MAX_PHOTO_BYTES must be positive")
	}
	return nil
}

// IsProduction reports whether cookies should be marked Secure
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseList parses a comma-separated list into a slice
func parseList(values string) []string {
	if values == "" {
		return []string{}
	}

	parts := strings.Split(values, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
