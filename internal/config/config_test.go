// filepath: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		hasError bool
	}{
		{"8MB", 8 * 1024 * 1024, false},
		{"512KB", 512 * 1024, false},
		{"1GB", 1 * 1024 * 1024 * 1024, false},
		{"100", 100, false},        // Bytes
		{"1024B", 1024, false},     // Bytes with suffix
		{" 4 MB ", 4194304, false}, // Spaces
		{"8mb", 8388608, false},    // Lowercase
		{"invalid", 0, true},
		{"10XB", 0, true},
		{"-10MB", 0, true}, // Regex expects digits, not negatives
	}

	for _, tc := range tests {
		val, err := parseSize(tc.input)
		if tc.hasError {
			assert.Error(t, err, "Expected error for input: %s", tc.input)
		} else {
			assert.NoError(t, err, "Unexpected error for input: %s", tc.input)
			assert.Equal(t, tc.expected, val, "Mismatch for input: %s", tc.input)
		}
	}
}

func TestConfig_ParseAndValidate(t *testing.T) {
	t.Run("Valid Config", func(t *testing.T) {
		cfg := &Config{
			Download: DownloadConfig{
				Timeout: "5m",
				MaxSize: "2G",
				BaseURL: "https://example.test/datasets",
			},
		}
		err := cfg.ParseAndValidate()
		assert.NoError(t, err)
		assert.Equal(t, 5*time.Minute, cfg.DownloadTimeout)
		assert.Equal(t, int64(2<<30), cfg.MaxDownloadBytes)
		assert.Equal(t, "https://example.test/datasets/", cfg.Download.BaseURL)
	})

	t.Run("Default Fallback", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.ParseAndValidate()
		assert.NoError(t, err)
		assert.Equal(t, "movie_db.sqlite", cfg.Database.Path)
		assert.Equal(t, DefaultBaseURL, cfg.Download.BaseURL)
		assert.Equal(t, 30*time.Minute, cfg.DownloadTimeout)
		assert.Equal(t, int64(0), cfg.MaxDownloadBytes)
		assert.Equal(t, "viewings", cfg.Viewings.Dir)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("Invalid Timeout", func(t *testing.T) {
		cfg := &Config{Download: DownloadConfig{Timeout: "soon"}}
		err := cfg.ParseAndValidate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid download timeout")
	})

	t.Run("Invalid Size", func(t *testing.T) {
		cfg := &Config{Download: DownloadConfig{MaxSize: "NotASize"}}
		err := cfg.ParseAndValidate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid download max_size")
	})

	t.Run("Negative Keep", func(t *testing.T) {
		cfg := &Config{Housekeeping: HousekeepingConfig{KeepGenerations: -1}}
		assert.Error(t, cfg.ParseAndValidate())
	})
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Database.Path = "custom.sqlite"
	cfg.Housekeeping.KeepGenerations = 3
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.sqlite", loaded.Database.Path)
	assert.Equal(t, 3, loaded.Housekeeping.KeepGenerations)
	assert.Equal(t, DefaultBaseURL, loaded.Download.BaseURL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, os.IsNotExist(err))
}
