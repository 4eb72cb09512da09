// filepath: internal/services/refresh_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"moviedb/internal/dataset"
	"moviedb/internal/extractor"
	"moviedb/internal/logging"
	"moviedb/internal/models"
	"moviedb/internal/repository"
	"moviedb/internal/shared"
	"moviedb/internal/viewings"
)

// Entity names one rebuildable table.
type Entity string

const (
	EntityMovies    Entity = "movies"
	EntityPeople    Entity = "people"
	EntityAkaTitles Entity = "aka_titles"
	EntityViewings  Entity = "viewings"
)

// AllEntities lists every entity in refresh order.
var AllEntities = []Entity{EntityMovies, EntityPeople, EntityAkaTitles, EntityViewings}

// ParseEntity validates an entity name.
func ParseEntity(name string) (Entity, error) {
	for _, e := range AllEntities {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, shared.ErrUnknownEntity)
}

// RefreshOptions tunes a refresh run.
type RefreshOptions struct {
	// Force reloads generations whose checkpoint says they are done.
	Force bool
}

var _ RefreshService = (*refreshService)(nil)

type refreshService struct {
	fetcher     Fetcher
	loader      TableLoader
	history     HistoryStore
	registry    dataset.Registry
	viewingsDir string
	auditor     Auditor

	open func(path string) (SnapshotReader, error)
	now  func() time.Time
}

// NewRefreshService wires the refresh pipeline.
func NewRefreshService(fetcher Fetcher, loader TableLoader, history HistoryStore, registry dataset.Registry, viewingsDir string) *refreshService {
	return &refreshService{
		fetcher:     fetcher,
		loader:      loader,
		history:     history,
		registry:    registry,
		viewingsDir: viewingsDir,
		open: func(path string) (SnapshotReader, error) {
			return extractor.Open(path)
		},
		now: time.Now,
	}
}

// SetAuditor sets the recipient of table rebuild events.
func (s *refreshService) SetAuditor(auditor Auditor) {
	s.auditor = auditor
}

// RefreshAll refreshes every entity without forcing.
func (s *refreshService) RefreshAll(ctx context.Context) error {
	return s.Refresh(ctx, RefreshOptions{})
}

// Refresh refreshes the given entities (all when none are given) in
// dependency order and stops at the first failure. When the movies table was
// actually reloaded, people and alternate titles are reloaded as well so
// that they are filtered against the new movie set. Across runs the same
// holds through their checkpoints, which record the movie set they used.
func (s *refreshService) Refresh(ctx context.Context, opts RefreshOptions, entities ...Entity) error {
	if len(entities) == 0 {
		entities = AllEntities
	}
	entities = inRefreshOrder(entities)

	dependents := opts
	for _, entity := range entities {
		var err error
		switch entity {
		case EntityMovies:
			var ran bool
			ran, err = s.RefreshMovies(ctx, opts)
			if ran {
				dependents.Force = true
			}
		case EntityPeople:
			err = s.RefreshPeople(ctx, dependents)
		case EntityAkaTitles:
			err = s.RefreshAkaTitles(ctx, dependents)
		case EntityViewings:
			err = s.RebuildViewings(ctx)
		default:
			err = fmt.Errorf("%q: %w", entity, shared.ErrUnknownEntity)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func inRefreshOrder(entities []Entity) []Entity {
	rank := make(map[Entity]int, len(AllEntities))
	for i, e := range AllEntities {
		rank[e] = i
	}
	seen := make(map[Entity]bool)
	var out []Entity
	for _, e := range entities {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}

// RefreshMovies reloads the movies table. The registry is invalidated on
// every return path, including failures after a partial rebuild.
func (s *refreshService) RefreshMovies(ctx context.Context, opts RefreshOptions) (bool, error) {
	defer s.registry.Invalidate()

	return s.refresh(ctx, EntityMovies, dataset.MoviesFile, repository.MoviesTable, opts, nil,
		func(rows dataset.Rows) ([]repository.Record, dataset.Stats, error) {
			movies, stats, err := dataset.ExtractMovies(rows)
			if err != nil {
				return nil, stats, err
			}
			return repository.SortedRecords(movies), stats, nil
		})
}

// RefreshPeople reloads the people table against the accepted movies.
func (s *refreshService) RefreshPeople(ctx context.Context, opts RefreshOptions) error {
	_, err := s.refreshDependent(ctx, EntityPeople, dataset.PeopleFile, repository.PeopleTable, opts,
		func(rows dataset.Rows, ids dataset.IDSet) ([]repository.Record, dataset.Stats, error) {
			people, stats, err := dataset.ExtractPeople(rows, ids)
			if err != nil {
				return nil, stats, err
			}
			return repository.SortedRecords(people), stats, nil
		})
	return err
}

// RefreshAkaTitles reloads the aka_titles table against the accepted movies.
func (s *refreshService) RefreshAkaTitles(ctx context.Context, opts RefreshOptions) error {
	_, err := s.refreshDependent(ctx, EntityAkaTitles, dataset.AkaTitlesFile, repository.AkaTitlesTable, opts,
		func(rows dataset.Rows, ids dataset.IDSet) ([]repository.Record, dataset.Stats, error) {
			akaTitles, stats, err := dataset.ExtractAkaTitles(rows, ids)
			if err != nil {
				return nil, stats, err
			}
			return repository.Records(akaTitles), stats, nil
		})
	return err
}

// RebuildViewings rebuilds the viewings table from the viewing files.
func (s *refreshService) RebuildViewings(ctx context.Context) error {
	started := s.now()
	log := logging.Log.WithField("entity", EntityViewings)
	log.Info("==== Begin updating viewings...")

	all, err := viewings.LoadAll(s.viewingsDir)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", EntityViewings, err)
	}
	if err := s.loader.Rebuild(ctx, repository.ViewingsTable, repository.Records(all)); err != nil {
		return fmt.Errorf("refresh %s: %w", EntityViewings, err)
	}

	s.recordHistory(ctx, &models.RefreshRecord{
		Entity:     string(EntityViewings),
		SourcePath: s.viewingsDir,
		Rows:       len(all),
		Accepted:   len(all),
		StartedAt:  started,
		FinishedAt: s.now(),
	})
	return nil
}

// auditActor names the pipeline in audit events.
const auditActor = "refresh"

type extractFunc func(rows dataset.Rows) ([]repository.Record, dataset.Stats, error)

type dependentExtractFunc func(rows dataset.Rows, ids dataset.IDSet) ([]repository.Record, dataset.Stats, error)

// refreshDependent refreshes an entity filtered by the accepted movies. Its
// checkpoint is keyed to the fingerprint of that set, so a generation loaded
// against an older movies table is loaded again.
func (s *refreshService) refreshDependent(ctx context.Context, entity Entity, file string, def repository.TableDefinition, opts RefreshOptions, extract dependentExtractFunc) (bool, error) {
	var ids dataset.IDSet
	basis := func() (string, error) {
		var err error
		ids, err = s.registry.AcceptedMovieIDs(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDependencies, err)
		}
		return ids.Fingerprint(), nil
	}
	return s.refresh(ctx, entity, file, def, opts, basis, func(rows dataset.Rows) ([]repository.Record, dataset.Stats, error) {
		return extract(rows, ids)
	})
}

// refresh runs fetch, checkpoint, extract and rebuild for one snapshot
// entity. It reports whether the table was reloaded. A non-nil basis names
// the input the load is derived from.
func (s *refreshService) refresh(ctx context.Context, entity Entity, file string, def repository.TableDefinition, opts RefreshOptions, basis func() (string, error), extract extractFunc) (bool, error) {
	log := logging.Log.WithField("entity", entity)
	log.Infof("==== Begin updating %s...", entity)

	path, err := s.fetcher.Fetch(ctx, file)
	if err != nil {
		return false, fmt.Errorf("refresh %s: %w", entity, err)
	}

	if opts.Force {
		if err := extractor.Reset(path); err != nil {
			return false, fmt.Errorf("refresh %s: %w", entity, err)
		}
	}

	var key string
	if basis != nil {
		if key, err = basis(); err != nil {
			return false, fmt.Errorf("refresh %s: %w", entity, err)
		}
		current, err := extractor.DoneFor(path, key)
		if err != nil {
			return false, fmt.Errorf("refresh %s: %w", entity, err)
		}
		if loaded, _ := extractor.Done(path); loaded && !current {
			log.Infof("Generation %s was loaded against another movie set, reloading.", path)
		}
	}

	started := s.now()
	var stats dataset.Stats
	ran, err := extractor.RunFor(path, key, func() error {
		rows, err := s.open(path)
		if err != nil {
			return err
		}
		defer rows.Close()

		records, st, err := extract(rows)
		stats = st
		if err != nil {
			return err
		}
		return s.loader.Rebuild(ctx, def, records)
	})
	if err != nil {
		return ran, fmt.Errorf("refresh %s: %w", entity, err)
	}
	if !ran {
		log.Infof("Generation %s was already loaded, skipping.", path)
		return false, nil
	}

	s.recordHistory(ctx, &models.RefreshRecord{
		Entity:     string(entity),
		SourcePath: path,
		Rows:       stats.Rows,
		Accepted:   stats.Accepted,
		Rejected:   stats.Rejected,
		Skipped:    stats.Skipped,
		StartedAt:  started,
		FinishedAt: s.now(),
	})
	return true, nil
}

// recordHistory audits a completed load and stores its history row.
// Bookkeeping failures do not fail the refresh; the table content is
// already committed.
func (s *refreshService) recordHistory(ctx context.Context, record *models.RefreshRecord) {
	if s.auditor != nil {
		s.auditor.Log(ctx, "table.rebuild", auditActor, record.Entity, map[string]any{
			"source":   record.SourcePath,
			"rows":     record.Rows,
			"accepted": record.Accepted,
			"rejected": record.Rejected,
			"skipped":  record.Skipped,
		})
	}
	if s.history == nil {
		return
	}
	if err := s.history.InsertRefreshRecord(ctx, record); err != nil {
		logging.Log.WithField("entity", record.Entity).Warnf("Failed to record refresh history: %v", err)
	}
}
