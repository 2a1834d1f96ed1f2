package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string // sqlite, postgres or mysql
	DatabasePath    string // sqlite only
	DatabaseURL     string // postgres/mysql DSN
	MigrationsPath  string
	SessionDuration time.Duration
	InvitationTTL   time.Duration
	JWTSecret       string
	JWTTokenTTL     time.Duration
	AWSRegion       string
	SESFromEmail    string
	SESFromName     string
	AppBaseURL      string
	ReminderHorizon int // days ahead an installment counts as "upcoming"
	Debug           bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./finance.db"),
		DatabaseURL:     getEnv("DB_URL", ""),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionDuration: getDurationEnv("SESSION_DURATION", 24*time.Hour),
		InvitationTTL:   getDurationEnv("INVITATION_TTL", 7*24*time.Hour),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTTokenTTL:     getDurationEnv("JWT_TOKEN_TTL", time.Hour),
		AWSRegion:       getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		SESFromName:     getEnv("SES_FROM_NAME", "Family Finance"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
		ReminderHorizon: getIntEnv("REMINDER_HORIZON_DAYS", 7),
		Debug:           getEnv("DEBUG", "") == "true",
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getIntEnv reads an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
