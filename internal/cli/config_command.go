package cli

import (
	"fmt"
	"os"

	"moviedb/internal/config"

	"github.com/spf13/cobra"
)

type ConfigOptions struct {
	Force bool // Overwrite an existing file
}

func NewConfigCommand(globalOptions *GlobalOptions) *cobra.Command {

	configOptions := &ConfigOptions{}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file tools",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with every default filled in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(globalOptions.CfgFilePath, configOptions)
		},
	}
	initCmd.Flags().BoolVar(&configOptions.Force, "force", false, "Overwrite an existing configuration file.")

	configCmd.AddCommand(initCmd)

	return configCmd
}

func runConfigInit(path string, configOptions *ConfigOptions) error {
	if !configOptions.Force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
	}
	if err := config.SaveConfig(path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
