package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        string
	Debug       bool
	CORSOrigins []string

	// Rate limiting
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	// Authentication
	JWTSecret           string
	JWTExpiresIn        time.Duration
	RefreshTokenExpires time.Duration
	UsersFile           string
	SeedPassword        string

	// Redis is optional: token revocation and the feed relay fall back to memory
	RedisURL string

	// Realtime feed
	FeedBuffer int

	// Schedule configuration
	DigestSchedule string // "daily" or "weekly"
	TimeZone       string

	// OSINT feeds
	FeedURLs     []string
	FeedAgency   string
	FeedSchedule string

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	AgencyWebhooks    map[string]string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		Debug:       getBoolEnv("DEBUG", false),
		CORSOrigins: getSliceEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),

		RateLimitWindow:      getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTExpiresIn:        getDurationEnv("JWT_EXPIRES_IN", 15*time.Minute),
		RefreshTokenExpires: getDurationEnv("REFRESH_TOKEN_EXPIRES_IN", 7*24*time.Hour),
		UsersFile:           getEnv("USERS_FILE", "users.yaml"),
		SeedPassword:        getEnv("SEED_PASSWORD", ""),

		RedisURL:   getEnv("REDIS_URL", ""),
		FeedBuffer: getIntEnv("FEED_BUFFER", 256),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", "daily"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		FeedURLs:     getSliceEnv("FEED_URLS", nil),
		FeedAgency:   getEnv("FEED_AGENCY", string(models.AgencyNIS)),
		FeedSchedule: getEnv("FEED_SCHEDULE", "0 */30 * * * *"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "fusion-archive"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		AgencyWebhooks:    getMapEnv("AGENCY_WEBHOOKS"),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWTExpiresIn <= 0 || c.RefreshTokenExpires <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	if c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if !models.Agency(c.FeedAgency).Valid() {
		return fmt.Errorf("FEED_AGENCY %q is not a known agency", c.FeedAgency)
	}

	if c.RateLimitMaxRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window and max requests must be positive")
	}

	if c.FeedBuffer <= 0 {
		return fmt.Errorf("FEED_BUFFER must be positive")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.TimeZone, err)
	}

	return nil
}

// HasNotificationChannel reports whether any alert or digest channel is configured.
func (c *Config) HasNotificationChannel() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != "" || len(c.AgencyWebhooks) > 0
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getMapEnv parses "KEY=value,KEY2=value2". Malformed pairs are skipped.
func getMapEnv(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getSliceEnv(key, nil) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}
