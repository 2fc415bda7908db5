package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider modes
const (
	ProviderModeMock = "mock"
	ProviderModeLive = "live"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Interline provider configuration
	Provider ProviderConfig

	// Search result cache configuration
	Cache CacheConfig

	// Booking configuration
	Booking BookingConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	RunMigrations      bool
}

// JWTConfig holds agent token configuration
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// ProviderConfig holds interline provider configuration
type ProviderConfig struct {
	Mode        string // "mock" serves fixtures, "live" calls BaseURL
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	RateLimit   time.Duration // minimum spacing between provider calls
	MockFixture string        // empty uses the built-in fixture
	MockDelay   time.Duration
}

// CacheConfig holds search cache configuration
type CacheConfig struct {
	SearchTTL time.Duration
	RedisURL  string // empty keeps the cache in process
}

// BookingConfig holds booking workflow configuration
type BookingConfig struct {
	DefaultCurrency   string
	CheckAgentBalance bool
	SubmissionTimeout time.Duration
	SearchTimeout     time.Duration
	SessionIdleTTL    time.Duration
	SweepSchedule     string // cron spec with seconds
	ReferenceDataFile string // empty uses the embedded country table
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 300*time.Second),
			RunMigrations:      getEnvAsBool("DATABASE_RUN_MIGRATIONS", true),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "interline-booking"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_TOKEN_EXPIRY", 8*time.Hour),
		},
		Provider: ProviderConfig{
			Mode:        strings.ToLower(getEnv("PROVIDER_MODE", ProviderModeMock)),
			BaseURL:     getEnv("PROVIDER_BASE_URL", ""),
			APIKey:      getEnv("PROVIDER_API_KEY", ""),
			Timeout:     getEnvAsDuration("PROVIDER_TIMEOUT_SECONDS", 30*time.Second),
			MaxRetries:  getEnvAsInt("PROVIDER_MAX_RETRIES", 2),
			RateLimit:   time.Duration(getEnvAsInt("PROVIDER_RATE_LIMIT_MS", 100)) * time.Millisecond,
			MockFixture: getEnv("PROVIDER_MOCK_FIXTURE", ""),
			MockDelay:   time.Duration(getEnvAsInt("PROVIDER_MOCK_DELAY_MS", 150)) * time.Millisecond,
		},
		Cache: CacheConfig{
			SearchTTL: getEnvAsDuration("SEARCH_CACHE_TTL_SECONDS", 60*time.Second),
			RedisURL:  getEnv("REDIS_URL", ""),
		},
		Booking: BookingConfig{
			DefaultCurrency:   strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
			CheckAgentBalance: getEnvAsBool("BOOKING_CHECK_AGENT_BALANCE", true),
			SubmissionTimeout: getEnvAsDuration("BOOKING_SUBMISSION_TIMEOUT_SECONDS", 90*time.Second),
			SearchTimeout:     getEnvAsDuration("SEARCH_TIMEOUT_SECONDS", 45*time.Second),
			SessionIdleTTL:    getEnvAsDuration("SESSION_IDLE_TTL_SECONDS", 30*time.Minute),
			SweepSchedule:     getEnv("SESSION_SWEEP_SCHEDULE", "0 */5 * * * *"),
			ReferenceDataFile: getEnv("REFDATA_FILE", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Provider.Mode {
	case ProviderModeMock:
	case ProviderModeLive:
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("PROVIDER_BASE_URL is required in live mode")
		}
		if c.Provider.APIKey == "" {
			return fmt.Errorf("PROVIDER_API_KEY is required in live mode")
		}
	default:
		return fmt.Errorf("invalid provider mode: %s (must be 'mock' or 'live')", c.Provider.Mode)
	}

	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES cannot be negative")
	}

	if len(c.Booking.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code")
	}

	return nil
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
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
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads whole seconds, or a Go duration string like "90s"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
