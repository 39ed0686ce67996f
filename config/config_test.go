package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("should load defaults", func(t *testing.T) {
		cfg, err := LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, "8000", cfg.ServerPort)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "tastevine", cfg.DBName)
		assert.Equal(t, "BAAI/bge-base-en-v1.5", cfg.EmbeddingModel)
		assert.Equal(t, "checkpoints", cfg.CheckpointDir)
	})

	t.Run("should honor environment overrides", func(t *testing.T) {
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_NAME", "recipes")
		t.Setenv("REDIS_DB", "3")

		cfg, err := LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.DBHost)
		assert.Equal(t, "recipes", cfg.DBName)
		assert.Equal(t, 3, cfg.RedisDB)
	})

	t.Run("should reject malformed REDIS_DB", func(t *testing.T) {
		t.Setenv("REDIS_DB", "not-a-number")

		_, err := LoadConfig()

		assert.Error(t, err)
	})

	t.Run("should reject invalid ssl mode", func(t *testing.T) {
		t.Setenv("DB_SSL_MODE", "maybe")

		_, err := LoadConfig()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_SSL_MODE")
	})

	t.Run("should read secrets from files", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "gemini_key")
		require.NoError(t, os.WriteFile(keyPath, []byte("file-key\n"), 0o600))
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY_FILE", keyPath)

		cfg, err := LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, "file-key", cfg.GeminiAPIKey)
	})
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "postgres",
		DBPassword: "secret",
		DBName:     "tastevine",
		DBSSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=tastevine sslmode=disable",
		cfg.DSN())
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("CI", "")

	t.Setenv("ENV", "production")
	assert.Equal(t, Production, GetEnvironment())
	assert.True(t, IsProduction())

	t.Setenv("ENV", "test")
	assert.Equal(t, Test, GetEnvironment())
	assert.True(t, IsTest())

	t.Setenv("ENV", "")
	assert.Equal(t, Development, GetEnvironment())

	t.Setenv("CI", "true")
	assert.Equal(t, CI, GetEnvironment())
}
