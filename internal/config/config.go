// Package config loads gateway configuration from the environment.
//
// All knobs are plain environment variables with sensible defaults, matching
// how the rest of the platform is deployed. The only hard requirements are
// the database credentials: a gateway without a store cannot account unread
// messages, so missing DB_USER/DB_PASS is a startup error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the full gateway configuration.
type Config struct {
	// WebSocket listener
	WSPort int

	// Admin HTTP server (health, stats, metrics)
	AdminPort int

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Optional Redis session cache
	CacheEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	SessionTTL    time.Duration

	// Keep-alive loop
	PingInterval time.Duration
	PongTimeout  time.Duration

	// Scheduled maintenance
	SessionPurgeInterval time.Duration

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load reads configuration from the environment. DB_USER and DB_PASS are
// mandatory; everything else falls back to a default.
func Load() (*Config, error) {
	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASS")
	if dbUser == "" || dbPass == "" {
		return nil, fmt.Errorf("DB_USER and DB_PASS must be set")
	}

	cfg := &Config{
		WSPort:    getEnvInt("WS_PORT", 8090),
		AdminPort: getEnvInt("ADMIN_PORT", 8091),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     dbUser,
		DBPassword: dbPass,
		DBName:     getEnv("DB_NAME", "kuttalk_db"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		CacheEnabled:  getEnv("CACHE_ENABLED", "false") == "true",
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionTTL:    getEnvDuration("SESSION_CACHE_TTL", 5*time.Minute),

		PingInterval: getEnvDuration("PING_INTERVAL", 3*time.Second),
		PongTimeout:  getEnvDuration("PONG_TIMEOUT", 3*time.Second),

		SessionPurgeInterval: getEnvDuration("SESSION_PURGE_INTERVAL", 1*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnv("LOG_PRETTY", "false") == "true",
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
