package cli

import (
	"errors"
	"fmt"
	"io"

	"moviedb/internal/services"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type PruneOptions struct {
	Keep int // Number of newest generations to keep
}

func NewPruneCommand(globalOptions *GlobalOptions) *cobra.Command {

	pruneOptions := &PruneOptions{}

	pruneCommand := &cobra.Command{
		Use:   "prune",
		Short: "Remove old snapshot generations from the download root",
		Long: `Deletes every dated generation directory except the newest ones. Defaults to
the keep_generations setting of the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := globalOptions.Conf.Housekeeping.KeepGenerations
			if cmd.Flags().Changed("keep") {
				keep = pruneOptions.Keep
			}
			return runPrune(cmd.OutOrStdout(), globalOptions, keep)
		},
	}

	pruneOptions.registerFlags(pruneCommand)

	return pruneCommand
}

func (opt *PruneOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&opt.Keep, "keep", 0, "Number of newest generations to keep.")
}

func runPrune(out io.Writer, globalOptions *GlobalOptions, keep int) error {
	if keep <= 0 {
		return errors.New("nothing to prune: set --keep or keep_generations to a positive number")
	}

	housekeepingService := services.NewHousekeepingService(globalOptions.Conf.Download.Root, nil, keep)
	report, err := housekeepingService.Prune(keep)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Removed %d generations, freed %s.\n", report.GenerationsRemoved, humanize.Bytes(uint64(report.SpaceFreedBytes)))
	return err
}
