package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Database DatabaseConfig
	Outbox   OutboxConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name          string
	Addr          string
	PublicBaseURL string
}

// StoreConfig points at the spreadsheet script that persists guests.
type StoreConfig struct {
	URL     string
	Timeout time.Duration
}

// DatabaseConfig holds the local database used for the outbox
type DatabaseConfig struct {
	URL string
}

// OutboxConfig controls local durability of Store writes
type OutboxConfig struct {
	Enabled        bool
	ReplayInterval time.Duration
	MaxAttempts    int
}

// AuthConfig holds minister sign-in configuration
type AuthConfig struct {
	PasswordHash       string
	SecretKey          string
	TokenExpiryMinutes int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "Word Sanctuary Guestbook"),
			Addr:          getEnv("ADDR", ":8080"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Store: StoreConfig{
			URL:     getEnv("STORE_URL", "http://localhost:8090/exec"),
			Timeout: getEnvAsDuration("STORE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "sqlite:///./guestbook.db"),
		},
		Outbox: OutboxConfig{
			Enabled:        getEnvAsBool("OUTBOX_ENABLED", true),
			ReplayInterval: getEnvAsDuration("OUTBOX_REPLAY_INTERVAL", time.Minute),
			MaxAttempts:    getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 5),
		},
		Auth: AuthConfig{
			PasswordHash:       getEnv("MINISTER_PASSWORD_HASH", ""),
			SecretKey:          getEnv("SECRET_KEY", ""),
			TokenExpiryMinutes: getEnvAsInt("TOKEN_EXPIRY_MINUTES", 12*60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SheetConfig configures the local spreadsheet emulator.
type SheetConfig struct {
	Addr     string
	Database DatabaseConfig
	Delay    time.Duration
	Log      LogConfig
}

// LoadSheet loads the emulator configuration from SHEET_* variables.
func LoadSheet() SheetConfig {
	_ = godotenv.Load()
	return SheetConfig{
		Addr:     getEnv("SHEET_ADDR", ":8090"),
		Database: DatabaseConfig{URL: getEnv("SHEET_DATABASE_URL", "sqlite:///./sheet.db")},
		Delay:    getEnvAsDuration("SHEET_DELAY", 0),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate checks the values the service cannot start without.
func (c *Config) Validate() error {
	if c.App.Addr == "" {
		return fmt.Errorf("ADDR must be set")
	}
	if c.Store.URL == "" {
		return fmt.Errorf("STORE_URL must be set")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be greater than 0")
	}
	if c.Outbox.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set when the outbox is enabled")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Auth.Enabled() {
		if len(c.Auth.SecretKey) < 32 {
			return fmt.Errorf("SECRET_KEY must be at least 32 characters when minister sign-in is enabled")
		}
		if c.Auth.TokenExpiryMinutes <= 0 {
			return fmt.Errorf("TOKEN_EXPIRY_MINUTES must be greater than 0")
		}
	}
	return nil
}

// Enabled reports whether minister sign-in is configured.
func (a AuthConfig) Enabled() bool {
	return a.PasswordHash != ""
}

// TokenTTL is the lifetime of a minister session token.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenExpiryMinutes) * time.Minute
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("10s") or bare seconds ("10").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// SQLitePath extracts the SQLite database path from the URL
func (c *DatabaseConfig) SQLitePath() string {
	return strings.TrimPrefix(c.URL, "sqlite:///")
}
