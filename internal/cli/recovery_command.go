package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"moviedb/internal/logging"

	"github.com/spf13/cobra"
)

type RecoveryOptions struct {
	DryRun bool // If true, report only without editing
}

func NewRecoveryCommand(globalOptions *GlobalOptions) *cobra.Command {

	recoveryOptions := &RecoveryOptions{DryRun: false}

	recoveryCommand := &cobra.Command{
		Use:   "recovery",
		Short: "Run maintenance tasks to fix database inconsistencies",
		Long: `Scans the tables that reference movies for rows whose movie no longer exists
(e.g., after a movies refresh whose dependent refresh failed) and deletes them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecovery(cmd.Context(), cmd.OutOrStdout(), globalOptions, recoveryOptions)
		},
	}

	recoveryOptions.registerFlags(recoveryCommand)

	return recoveryCommand

}

func (opt *RecoveryOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&opt.DryRun, "dryrun", false, "If true, report only without editing.")
}

func runRecovery(ctx context.Context, out io.Writer, globalOptions *GlobalOptions, recoveryOptions *RecoveryOptions) error {
	repo, err := openRepository(globalOptions.Conf)
	if err != nil {
		return fmt.Errorf("cannot run recovery: %w", err)
	}
	defer repo.Close()

	logging.Log.Info("Starting recovery process...")

	report, err := repo.FixOrphanedReferences(ctx, recoveryOptions.DryRun)
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(report))
	for table := range report {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	verb := "deleted"
	if recoveryOptions.DryRun {
		verb = "found"
	}
	for _, table := range tables {
		fmt.Fprintf(out, "%s: %d orphaned rows %s\n", table, report[table], verb)
	}

	logging.Log.Infof("Recovery complete. Total rows %s: %d", verb, report.Total())
	return nil
}
