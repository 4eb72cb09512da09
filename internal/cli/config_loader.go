// filepath: internal/cli/config_loader.go
package cli

import (
	"fmt"
	"os"
	"strings"

	"moviedb/internal/config"
	"moviedb/internal/logging"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "MOVIEDB"
	defaultConfigPath = "config.toml"
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"audit-enabled": "logging.audit_enabled",
	"database":      "database.path",
	"downloads":     "download.root",
	"viewings-dir":  "viewings.dir",
}

// envKeys lists every config key that can be overridden from the environment.
var envKeys = []string{
	"database.path",
	"download.root",
	"download.base_url",
	"download.timeout",
	"download.max_size",
	"viewings.dir",
	"logging.level",
	"logging.format",
	"logging.audit_enabled",
	"housekeeping.keep_generations",
}

// envName returns the environment variable for a config key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// newOverrides binds environment variables and the flags of cmd. Changed
// flags win over the environment.
func newOverrides(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for _, key := range envKeys {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return nil, err
		}
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// initializeConfig loads and overrides configuration values.
func initializeConfig(cmd *cobra.Command, options *GlobalOptions) error {
	// 1. Check environment variable for config path first
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" && !cmd.Flags().Changed("config_path") {
		options.CfgFilePath = envPath
	}
	if options.CfgFilePath == "" {
		options.CfgFilePath = defaultConfigPath
	}

	cfg, err := config.LoadConfig(options.CfgFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = &config.Config{}
		} else {
			return fmt.Errorf("failed to load configuration from %s: %w", options.CfgFilePath, err)
		}
	}

	// 2. Apply Overrides (Env Vars and CLI Flags)
	overrides, err := newOverrides(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to bind configuration overrides: %w", err)
	}
	applyOverrides(cfg, overrides)

	// 3. Validate
	if err := cfg.ParseAndValidate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// 4. Initialize Logging
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	goose.SetLogger(logging.Log)

	options.Conf = cfg
	return nil
}

func applyOverrides(c *config.Config, v *viper.Viper) {
	setString := func(key string, target *string) {
		if s := v.GetString(key); s != "" {
			*target = s
		}
	}

	setString("database.path", &c.Database.Path)
	setString("download.root", &c.Download.Root)
	setString("download.base_url", &c.Download.BaseURL)
	setString("download.timeout", &c.Download.Timeout)
	setString("download.max_size", &c.Download.MaxSize)
	setString("viewings.dir", &c.Viewings.Dir)
	setString("logging.level", &c.Logging.Level)
	setString("logging.format", &c.Logging.Format)

	if v.IsSet("logging.audit_enabled") {
		c.Logging.AuditEnabled = v.GetBool("logging.audit_enabled")
	}
	if v.IsSet("housekeeping.keep_generations") {
		c.Housekeeping.KeepGenerations = v.GetInt("housekeeping.keep_generations")
	}
}
