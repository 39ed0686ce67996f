package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (optional; chat responses are cached when set)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Embedding API configuration
	HFToken        string
	EmbeddingModel string
	EmbeddingURL   string

	// Generative API configuration
	GeminiAPIKey string
	GeminiURL    string

	// Ingestion configuration
	CheckpointDir string
}

// LoadConfig creates a new Config instance from environment variables.
// Credential values may also be supplied via <NAME>_FILE secret files.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8000"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: readSecret("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "tastevine"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: readSecret("REDIS_PASSWORD"),
		RedisURL:      os.Getenv("REDIS_URL"),

		HFToken:        readSecret("HF_TOKEN"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "BAAI/bge-base-en-v1.5"),
		EmbeddingURL:   os.Getenv("EMBEDDING_API_URL"),

		GeminiAPIKey: readSecret("GEMINI_API_KEY"),
		GeminiURL:    os.Getenv("GEMINI_API_URL"),

		CheckpointDir: getEnv("CHECKPOINT_DIR", "checkpoints"),
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value %q: %w", dbStr, err)
		}
		cfg.RedisDB = db
	}

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// readSecret reads a value from the environment, falling back to the
// contents of the file named by <key>_FILE (Docker secrets)
func readSecret(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}
