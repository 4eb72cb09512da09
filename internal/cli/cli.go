package cli

import (
	"fmt"
	"os"

	"moviedb/internal/config"

	"github.com/spf13/cobra"
)

// Version of the moviedb binary.
var Version = "0.4.0"

type GlobalOptions struct {
	CfgFilePath string
	LogLevel    string
	LogFormat   string
	Audit       bool
	Database    string
	Downloads   string
	ViewingsDir string

	Conf *config.Config
}

func NewRootCMD() *cobra.Command {

	globalOptions := &GlobalOptions{}

	rootCMD := &cobra.Command{
		Use:     "moviedb",
		Short:   "IMDb dataset refresh pipeline",
		Long:    "Downloads the published IMDb dataset snapshots and rebuilds a local SQLite movie database from them.",
		Version: Version,
		// Silence usage on runtime errors, flag errors still print it.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(cmd, globalOptions)
		},
	}

	// register global flags
	globalOptions.registerFlags(rootCMD)

	// add subcommands
	rootCMD.AddCommand(NewRefreshCommand(globalOptions))
	rootCMD.AddCommand(NewHistoryCommand(globalOptions))
	rootCMD.AddCommand(NewViewingCommand(globalOptions))
	rootCMD.AddCommand(NewPruneCommand(globalOptions))
	rootCMD.AddCommand(NewRecoveryCommand(globalOptions))
	rootCMD.AddCommand(NewMigrateCommand(globalOptions))
	rootCMD.AddCommand(NewConfigCommand(globalOptions))

	return rootCMD
}

func (options *GlobalOptions) registerFlags(cmd *cobra.Command) {
	// flags that can be used for each command
	cmd.PersistentFlags().StringVar(&options.CfgFilePath, "config_path", defaultConfigPath, "Path to the base configuration file. (Env: MOVIEDB_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "", "Logging level (debug, info, warn, error). (Env: MOVIEDB_LOGGING_LEVEL)")
	cmd.PersistentFlags().StringVar(&options.LogFormat, "log-format", "", "Logging format (text, json). (Env: MOVIEDB_LOGGING_FORMAT)")
	cmd.PersistentFlags().BoolVar(&options.Audit, "audit-enabled", false, "Log an audit event for every table rebuild. (Env: MOVIEDB_LOGGING_AUDIT_ENABLED=true)")
	cmd.PersistentFlags().StringVar(&options.Database, "database", "", "Path to the SQLite database. (Env: MOVIEDB_DATABASE_PATH)")
	cmd.PersistentFlags().StringVar(&options.Downloads, "downloads", "", "Root directory of the downloaded snapshot generations. (Env: MOVIEDB_DOWNLOAD_ROOT)")
	cmd.PersistentFlags().StringVar(&options.ViewingsDir, "viewings-dir", "", "Directory of the viewing record files. (Env: MOVIEDB_VIEWINGS_DIR)")
}

func Execute() {

	rootCmd := NewRootCMD()

	// Run the command based on os.Args
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
