// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Rates     RatesJobConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// PostgresConfig holds database configuration. The pool is deliberately
// small: one connection is exclusively owned by each in-flight operation,
// and the pool size bounds database load.
type PostgresConfig struct {
	Host             string
	Port             string
	Database         string
	User             string
	Password         string
	MaxConnections   int
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	MigrationsPath   string
}

// URL renders the configuration as a database URL for golang-migrate.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig holds Redis configuration for the API rate limiter.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr renders host:port for the Redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RateLimitConfig holds sliding-window rate limiting configuration.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// RatesJobConfig holds currency-rates ingestion configuration.
type RatesJobConfig struct {
	ProviderURL    string
	BaseCurrencies []string
	QuoteCurrency  string
	LookbackDays   int
	RequestsPerSec float64
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from a .env file (optional) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:             getEnv("POSTGRES_HOST", "localhost"),
			Port:             getEnv("POSTGRES_PORT", "5432"),
			Database:         getEnv("POSTGRES_DB", "household_ledger"),
			User:             getEnv("POSTGRES_USER", "ledger"),
			Password:         getEnv("POSTGRES_PASSWORD", ""),
			MaxConnections:   getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 4),
			AcquireTimeout:   getEnvAsDuration("POSTGRES_ACQUIRE_TIMEOUT", 5*time.Second),
			StatementTimeout: getEnvAsDuration("POSTGRES_STATEMENT_TIMEOUT", 10*time.Second),
			MigrationsPath:   getEnv("POSTGRES_MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Rates: RatesJobConfig{
			ProviderURL:    getEnv("RATES_PROVIDER_URL", "https://api.frankfurter.dev/v1"),
			BaseCurrencies: getEnvAsList("RATES_BASE_CURRENCIES", "USD,EUR,GBP"),
			QuoteCurrency:  getEnv("RATES_QUOTE_CURRENCY", "ILS"),
			LookbackDays:   getEnvAsInt("RATES_LOOKBACK_DAYS", 30),
			RequestsPerSec: getEnvAsFloat("RATES_REQUESTS_PER_SEC", 2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Postgres.MaxConnections < 1 {
		return nil, fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key, defaultValue string) []string {
	raw := strings.Split(getEnv(key, defaultValue), ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
