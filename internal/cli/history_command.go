package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"moviedb/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type HistoryOptions struct {
	Limit int // Number of records to show, 0 for all
}

func NewHistoryCommand(globalOptions *GlobalOptions) *cobra.Command {

	historyOptions := &HistoryOptions{}

	historyCommand := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent table loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd.OutOrStdout(), globalOptions, historyOptions)
		},
	}

	historyOptions.registerFlags(historyCommand)

	return historyCommand
}

func (opt *HistoryOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&opt.Limit, "limit", 20, "Number of records to show, 0 for all.")
}

func runHistory(ctx context.Context, out io.Writer, globalOptions *GlobalOptions, historyOptions *HistoryOptions) error {
	repo, err := openRepository(globalOptions.Conf)
	if err != nil {
		return err
	}
	defer repo.Close()

	records, err := repo.ListRefreshHistory(ctx, historyOptions.Limit)
	if err != nil {
		return err
	}
	return writeHistory(out, records)
}

func writeHistory(out io.Writer, records []models.RefreshRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No refresh recorded yet.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tFINISHED\tDURATION\tROWS\tACCEPTED\tREJECTED\tSKIPPED\tSOURCE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\t%s\t%s\t%s\n",
			r.Entity,
			humanize.Time(r.FinishedAt),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			humanize.Comma(int64(r.Rows)),
			humanize.Comma(int64(r.Accepted)),
			humanize.Comma(int64(r.Rejected)),
			humanize.Comma(int64(r.Skipped)),
			r.SourcePath,
		)
	}
	return w.Flush()
}
