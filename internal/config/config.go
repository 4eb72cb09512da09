// filepath: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"moviedb/internal/shared"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL is where the upstream publishes its dataset snapshots.
const DefaultBaseURL = "https://datasets.imdbws.com/"

// Config holds the application's configuration.
type Config struct {
	Database     DatabaseConfig     `toml:"database"`
	Download     DownloadConfig     `toml:"download"`
	Viewings     ViewingsConfig     `toml:"viewings"`
	Logging      LoggingConfig      `toml:"logging"`
	Housekeeping HousekeepingConfig `toml:"housekeeping"`

	DownloadTimeout  time.Duration `toml:"-"` // Runtime computed value
	MaxDownloadBytes int64         `toml:"-"` // Runtime computed value, 0 means unlimited
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DownloadConfig holds settings for fetching snapshot files.
type DownloadConfig struct {
	Root    string `toml:"root"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`  // e.g. "30m"
	MaxSize string `toml:"max_size"` // e.g. "4G", empty for unlimited
}

// ViewingsConfig points at the directory of viewing record files.
type ViewingsConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Level        string `toml:"level"`
	Format       string `toml:"format"` // "text" or "json"
	AuditEnabled bool   `toml:"audit_enabled"`
}

// HousekeepingConfig controls pruning of old snapshot generations.
type HousekeepingConfig struct {
	KeepGenerations int `toml:"keep_generations"` // 0 keeps everything
}

// LoadConfig loads the configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig writes the configuration to a TOML file.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trying to save the config: %w", shared.ErrorCreateFile)
	}
	defer f.Close()
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("trying to save the config: %w", shared.ErrorEncodeFile)
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every unset value.
func (c *Config) ApplyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "movie_db.sqlite"
	}
	if c.Download.Root == "" {
		c.Download.Root = "downloads"
	}
	if c.Download.BaseURL == "" {
		c.Download.BaseURL = DefaultBaseURL
	}
	if c.Download.Timeout == "" {
		c.Download.Timeout = "30m"
	}
	if c.Viewings.Dir == "" {
		c.Viewings.Dir = "viewings"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// ParseAndValidate processes configuration strings into runtime values.
// It sets defaults if values are missing and parses human-readable sizes.
func (c *Config) ParseAndValidate() error {
	c.ApplyDefaults()

	timeout, err := time.ParseDuration(c.Download.Timeout)
	if err != nil {
		return fmt.Errorf("invalid download timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("invalid download timeout: must be positive, got %s", c.Download.Timeout)
	}
	c.DownloadTimeout = timeout

	if c.Download.MaxSize != "" {
		sizeBytes, err := parseSize(c.Download.MaxSize)
		if err != nil {
			return fmt.Errorf("invalid download max_size: %w", err)
		}
		c.MaxDownloadBytes = sizeBytes
	}

	if !strings.HasSuffix(c.Download.BaseURL, "/") {
		c.Download.BaseURL += "/"
	}

	if c.Housekeeping.KeepGenerations < 0 {
		return fmt.Errorf("invalid keep_generations: %d", c.Housekeeping.KeepGenerations)
	}

	return nil
}

// parseSize parses a size string (e.g., "100G", "500MB") into bytes.
func parseSize(sizeStr string) (int64, error) {
	re := regexp.MustCompile(`(?i)^(\d+)\s*(K|M|G|T)?B?$`)
	matches := re.FindStringSubmatch(strings.TrimSpace(sizeStr))

	if len(matches) < 2 {
		return 0, fmt.Errorf("invalid size format: %s", sizeStr)
	}

	value, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number: %s", matches[1])
	}

	unit := ""
	if len(matches) > 2 {
		unit = strings.ToUpper(matches[2])
	}

	switch unit {
	case "T":
		return value * (1 << 40), nil
	case "G":
		return value * (1 << 30), nil
	case "M":
		return value * (1 << 20), nil
	case "K":
		return value * (1 << 10), nil
	default:
		return value, nil
	}
}
