package cli

import (
	"fmt"

	"moviedb/internal/audit"
	"moviedb/internal/config"
	"moviedb/internal/dataset"
	"moviedb/internal/fetcher"
	"moviedb/internal/logging"
	"moviedb/internal/repository"
	"moviedb/internal/services"
)

// openRepository connects to the database, bootstraps a fresh schema and
// refuses to continue on an outdated one.
func openRepository(cfg *config.Config) (*repository.Repository, error) {
	repo, err := repository.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	if err := repo.EnsureSchemaBootstrapped(); err != nil {
		repo.Close()
		logging.Log.Errorf("Failed to bootstrap database: %v", err)
		return nil, err
	}

	if err := repo.ValidateSchema(); err != nil {
		repo.Close()
		logging.Log.Error("---------------------------------------------------------------")
		logging.Log.Errorf("CRITICAL DATABASE ERROR: %v", err)
		logging.Log.Error("---------------------------------------------------------------")
		return nil, err
	}
	return repo, nil
}

// newRefreshService wires the refresh pipeline against repo.
func newRefreshService(cfg *config.Config, repo *repository.Repository) services.RefreshService {
	f := fetcher.New(cfg.Download.BaseURL, cfg.Download.Root, cfg.DownloadTimeout, cfg.MaxDownloadBytes)
	refreshService := services.NewRefreshService(f, repo, repo, dataset.NewRegistry(repo), cfg.Viewings.Dir)
	refreshService.SetAuditor(audit.NewLoggerAuditor(cfg.Logging.AuditEnabled, nil))
	return refreshService
}
