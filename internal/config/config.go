package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds all configuration for the application
type Config struct {
	// Backend API configuration
	APIBaseURL           string
	RequestTimeout       time.Duration
	RequireAIInstruction bool

	// Cache configuration
	CacheTTL time.Duration
	RedisURL string // empty keeps the cache in memory

	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	DigestSchedule       string // "daily" or "weekly"
	TimeZone             string
	DigestTopTemplates   int
	HotLeadInterval      time.Duration
	HotLeadMinConfidence int

	// Azure Storage configuration
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL    string
	NotificationEmails []string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:           strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
		RequestTimeout:       getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		RequireAIInstruction: getBoolEnv("REQUIRE_AI_INSTRUCTION", false),

		CacheTTL: getDurationEnv("CACHE_TTL", 5*time.Minute),
		RedisURL: getEnv("REDIS_URL", ""),

		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DigestSchedule:       getEnv("DIGEST_SCHEDULE", "daily"),
		TimeZone:             getEnv("TIMEZONE", "UTC"),
		DigestTopTemplates:   getIntEnv("DIGEST_TOP_TEMPLATES", 5),
		HotLeadInterval:      getDurationEnv("HOT_LEAD_INTERVAL", 15*time.Minute),
		HotLeadMinConfidence: getIntEnv("HOT_LEAD_MIN_CONFIDENCE", 8),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "digests"),

		TeamsWebhookURL:    getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmails: getSliceEnv("NOTIFICATION_EMAIL", nil),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getIntEnv("SMTP_PORT", 587),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Location returns the time zone used for schedules and "today" boundaries
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EmailEnabled reports whether digests are also sent by email
func (c *Config) EmailEnabled() bool {
	return len(c.NotificationEmails) > 0
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http or https URL, got %q", c.APIBaseURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily' or 'weekly'")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known time zone", c.TimeZone)
	}

	if c.HotLeadInterval < time.Minute {
		return fmt.Errorf("HOT_LEAD_INTERVAL must be at least 1m")
	}

	if c.HotLeadMinConfidence < 1 || c.HotLeadMinConfidence > 10 {
		return fmt.Errorf("HOT_LEAD_MIN_CONFIDENCE must be between 1 and 10")
	}

	if c.EmailEnabled() {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
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

// getSliceEnv splits a comma-separated value, dropping blank items
func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
