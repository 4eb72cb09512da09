package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moviedb/internal/logging"
	"moviedb/internal/services"

	"github.com/spf13/cobra"
)

type RefreshOptions struct {
	Force bool          // Reload generations that were already loaded
	Every time.Duration // Keep running and refresh on this interval
}

func NewRefreshCommand(globalOptions *GlobalOptions) *cobra.Command {

	refreshOptions := &RefreshOptions{}

	refreshCommand := &cobra.Command{
		Use:   "refresh [movies|people|aka_titles|viewings]...",
		Short: "Refresh the movie database from the latest snapshots",
		Long: `Fetches the current snapshot generation of each dataset, extracts the accepted
records and rebuilds the matching tables. Without arguments every table is refreshed
in dependency order. Generations that were already loaded are skipped unless --force is given.`,
		ValidArgs: []string{
			string(services.EntityMovies),
			string(services.EntityPeople),
			string(services.EntityAkaTitles),
			string(services.EntityViewings),
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), globalOptions, refreshOptions, args)
		},
	}

	refreshOptions.registerFlags(refreshCommand)

	return refreshCommand
}

func (opt *RefreshOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&opt.Force, "force", false, "Reload generations even if they were already loaded.")
	cmd.Flags().DurationVar(&opt.Every, "every", 0, "Keep running and refresh every table on this interval (minimum 1h), pruning old generations after each run.")
}

func runRefresh(ctx context.Context, globalOptions *GlobalOptions, refreshOptions *RefreshOptions, args []string) error {
	cfg := globalOptions.Conf

	entities := make([]services.Entity, 0, len(args))
	for _, arg := range args {
		entity, err := services.ParseEntity(arg)
		if err != nil {
			return err
		}
		entities = append(entities, entity)
	}
	if refreshOptions.Every > 0 && (len(entities) > 0 || refreshOptions.Force) {
		return errors.New("--every refreshes every table and cannot be combined with entity arguments or --force")
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	refreshService := newRefreshService(cfg, repo)
	housekeepingService := services.NewHousekeepingService(cfg.Download.Root, refreshService, cfg.Housekeeping.KeepGenerations)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if refreshOptions.Every == 0 {
		started := time.Now()
		if err := refreshService.Refresh(ctx, services.RefreshOptions{Force: refreshOptions.Force}, entities...); err != nil {
			return err
		}
		logging.Log.Infof("Refresh complete in %v.", time.Since(started).Round(time.Millisecond))

		report, err := housekeepingService.Prune(cfg.Housekeeping.KeepGenerations)
		if err != nil {
			logging.Log.Warnf("Housekeeping failed: %v", err)
			return nil
		}
		logging.Log.Info(report.Message)
		return nil
	}

	housekeepingService.Start(ctx, refreshOptions.Every)
	// Block until a signal is received
	<-ctx.Done()
	logging.Log.Info("Shutting down scheduled refresh...")
	housekeepingService.Stop()
	return nil
}
