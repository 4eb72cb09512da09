// filepath: internal/services/refresh_service_test.go
package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"moviedb/internal/config"
	"moviedb/internal/dataset"
	"moviedb/internal/fetcher"
	"moviedb/internal/models"
	"moviedb/internal/repository"
	"moviedb/internal/shared"
	"moviedb/internal/viewings"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Rebuild(ctx context.Context, def repository.TableDefinition, records []repository.Record) error {
	args := m.Called(ctx, def.Name, len(records))
	return args.Error(0)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) AcceptedMovieIDs(ctx context.Context) (dataset.IDSet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(dataset.IDSet), args.Error(1)
}

func (m *MockRegistry) Invalidate() {
	m.Called()
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Log(ctx context.Context, action string, actor string, resource string, details map[string]any) {
	m.Called(ctx, action, actor, resource, details)
}

// --- Snapshot fixtures ---

const (
	titleHeader = "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres"
	nameHeader  = "nconst\tprimaryName\tbirthYear\tdeathYear\tprimaryProfession\tknownForTitles"
	akaHeader   = "titleId\tordering\ttitle\tregion\tlanguage\ttypes\tattributes\tisOriginalTitle"
)

func writeSnapshot(t *testing.T, path, header string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(header + "\n" + strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

// diskFetcher serves snapshot files from a generation directory on disk.
type diskFetcher struct {
	dir      string
	fetches  map[string]int
	failures map[string]error
}

func (f *diskFetcher) Fetch(_ context.Context, name string) (string, error) {
	f.fetches[name]++
	if err, ok := f.failures[name]; ok {
		return "", &fetcher.FetchError{Resource: name, Op: "download", Err: err}
	}
	path := filepath.Join(f.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", &fetcher.FetchError{Resource: name, Op: "head", Err: err}
	}
	return path, nil
}

type pipeline struct {
	service  *refreshService
	repo     *repository.Repository
	fetcher  *diskFetcher
	opens    map[string]int
	root     string
	viewings string
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	root := t.TempDir()

	repo, err := repository.NewRepository(&config.Config{Database: config.DatabaseConfig{Path: filepath.Join(root, "movie_db.sqlite")}})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchemaBootstrapped())

	p := &pipeline{
		repo:     repo,
		fetcher:  &diskFetcher{dir: filepath.Join(root, "downloads", "2024-05-17"), fetches: map[string]int{}},
		opens:    map[string]int{},
		root:     root,
		viewings: filepath.Join(root, "viewings"),
	}
	p.service = NewRefreshService(p.fetcher, repo, repo, dataset.NewRegistry(repo), p.viewings)

	open := p.service.open
	p.service.open = func(path string) (SnapshotReader, error) {
		p.opens[filepath.Base(path)]++
		return open(path)
	}
	return p
}

func (p *pipeline) snapshot(t *testing.T, name, header string, lines ...string) {
	writeSnapshot(t, filepath.Join(p.fetcher.dir, name), header, lines...)
}

func (p *pipeline) count(t *testing.T, table string) int {
	n, err := p.repo.TableCount(context.Background(), table)
	require.NoError(t, err)
	return n
}

func (p *pipeline) standardSnapshots(t *testing.T) {
	p.snapshot(t, dataset.MoviesFile, titleHeader,
		"tt0000001\tmovie\tFirst\tFirst\t0\t1999\t\\N\t90\tDrama",
		"tt0000002\tmovie\tSecond\tSecond\t0\t2001\t\\N\t\\N\tComedy",
		"tt0000003\tmovie\tA Doc\tA Doc\t0\t2001\t\\N\t80\tDocumentary",
		"tt0000004\tshort\tShort\tShort\t0\t2001\t\\N\t8\tDrama",
	)
	p.snapshot(t, dataset.PeopleFile, nameHeader,
		"nm0000001\tJohn Smith\t1950\t\\N\tactor\ttt0000001",
		"nm0000002\tMadonna\t1958\t\\N\tsoundtrack\ttt0000002,tt0000003",
		"nm0000003\tDoc Maker\t\\N\t\\N\tdirector\ttt0000003",
		"nm0000004\tNobody\t\\N\t\\N\t\\N\t\\N",
	)
	p.snapshot(t, dataset.AkaTitlesFile, akaHeader,
		"tt0000001\t1\tErste\tDE\tde\t\\N\t\\N\t0",
		"tt0000001\t2\tFirst\t\\N\t\\N\toriginal\t\\N\t1",
		"tt0000002\t4\tDeuxième\tFR\t\\N\t\\N\t\\N\t0",
		"tt0000003\t1\tUn Doc\tFR\t\\N\t\\N\t\\N\t0",
	)
}

// --- Tests ---

func TestRefresh_CheckpointIdempotence(t *testing.T) {
	p := newPipeline(t)
	p.standardSnapshots(t)
	ctx := context.Background()

	require.NoError(t, p.service.RefreshAll(ctx))
	assert.Equal(t, 2, p.count(t, "movies"))
	assert.Equal(t, 2, p.count(t, "people"))
	assert.Equal(t, 3, p.count(t, "aka_titles"))

	require.NoError(t, p.service.RefreshAll(ctx))

	// The second run fetches again but parses nothing.
	assert.Equal(t, map[string]int{dataset.MoviesFile: 1, dataset.PeopleFile: 1, dataset.AkaTitlesFile: 1}, p.opens)
	assert.Equal(t, 2, p.fetcher.fetches[dataset.MoviesFile])
	assert.Equal(t, 2, p.count(t, "movies"))
	assert.Equal(t, 2, p.count(t, "people"))
	assert.Equal(t, 3, p.count(t, "aka_titles"))

	history, err := p.repo.ListRefreshHistory(ctx, 0)
	require.NoError(t, err)
	entities := map[string]int{}
	for _, r := range history {
		entities[r.Entity]++
	}
	assert.Equal(t, map[string]int{"movies": 1, "people": 1, "aka_titles": 1, "viewings": 2}, entities)
}

func TestRefresh_Force(t *testing.T) {
	p := newPipeline(t)
	p.standardSnapshots(t)
	ctx := context.Background()

	require.NoError(t, p.service.RefreshAll(ctx))
	require.NoError(t, p.service.Refresh(ctx, RefreshOptions{Force: true}, EntityAkaTitles))

	assert.Equal(t, 2, p.opens[dataset.AkaTitlesFile])
	assert.Equal(t, 1, p.opens[dataset.MoviesFile])
	assert.Equal(t, 3, p.count(t, "aka_titles"))
}

func TestRefresh_RegistryConsistency(t *testing.T) {
	p := newPipeline(t)
	p.standardSnapshots(t)
	ctx := context.Background()
	require.NoError(t, p.service.RefreshAll(ctx))

	// The next movie generation drops tt0000001; the other snapshots are unchanged.
	nextMovies := filepath.Join(p.root, "downloads", "2024-05-18", dataset.MoviesFile)
	writeSnapshot(t, nextMovies, titleHeader,
		"tt0000002\tmovie\tSecond\tSecond\t0\t2001\t\\N\t\\N\tComedy",
	)
	p.service.fetcher = &generationFetcher{
		diskFetcher: p.fetcher,
		overrides:   map[string]string{dataset.MoviesFile: nextMovies},
	}

	require.NoError(t, p.service.RefreshAll(ctx))

	ids, err := p.repo.MovieIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tt0000002"}, ids)

	// Dependents were reloaded against the new movie set.
	assert.Equal(t, 2, p.opens[dataset.PeopleFile])
	assert.Equal(t, 2, p.opens[dataset.AkaTitlesFile])

	assert.Equal(t, []string{"Madonna"}, p.peopleNames(t))
	assert.Equal(t, 1, p.count(t, "aka_titles"))

	// Persisted rows equal the accepted count of the latest load.
	history, err := p.repo.ListRefreshHistory(ctx, 0)
	require.NoError(t, err)
	latest := map[string]models.RefreshRecord{}
	for _, r := range history {
		if _, ok := latest[r.Entity]; !ok {
			latest[r.Entity] = r
		}
	}
	for _, table := range []string{"movies", "people", "aka_titles"} {
		assert.Equal(t, latest[table].Accepted, p.count(t, table), table)
	}
}

func (p *pipeline) peopleNames(t *testing.T) []string {
	t.Helper()
	var names []string
	rows, err := p.repo.DB.QueryContext(context.Background(), "SELECT full_name FROM people ORDER BY imdb_id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestRefresh_DependentsFollowMoviesAfterFailedRun(t *testing.T) {
	p := newPipeline(t)
	p.standardSnapshots(t)
	ctx := context.Background()
	require.NoError(t, p.service.RefreshAll(ctx))

	// The movies step loads a generation without tt0000001, then the run
	// dies on the people download.
	nextMovies := filepath.Join(p.root, "downloads", "2024-05-18", dataset.MoviesFile)
	writeSnapshot(t, nextMovies, titleHeader,
		"tt0000002\tmovie\tSecond\tSecond\t0\t2001\t\\N\t\\N\tComedy",
	)
	p.service.fetcher = &generationFetcher{
		diskFetcher: p.fetcher,
		overrides:   map[string]string{dataset.MoviesFile: nextMovies},
	}
	p.fetcher.failures = map[string]error{dataset.PeopleFile: errors.New("connection reset")}

	err := p.service.RefreshAll(ctx)
	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr), "got %v", err)

	// The next run finds movies done but must still reload both dependents.
	p.fetcher.failures = nil
	require.NoError(t, p.service.RefreshAll(ctx))

	assert.Equal(t, map[string]int{dataset.MoviesFile: 2, dataset.PeopleFile: 2, dataset.AkaTitlesFile: 2}, p.opens)
	assert.Equal(t, []string{"Madonna"}, p.peopleNames(t))
	assert.Equal(t, 1, p.count(t, "aka_titles"))

	orphans, err := p.repo.FixOrphanedReferences(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, orphans.Total(), "orphans: %v", orphans)

	// Once caught up, further runs skip every snapshot again.
	require.NoError(t, p.service.RefreshAll(ctx))
	assert.Equal(t, map[string]int{dataset.MoviesFile: 2, dataset.PeopleFile: 2, dataset.AkaTitlesFile: 2}, p.opens)
}

func TestRefresh_DependentsFollowMoviesRefreshedAlone(t *testing.T) {
	p := newPipeline(t)
	p.standardSnapshots(t)
	ctx := context.Background()
	require.NoError(t, p.service.RefreshAll(ctx))

	nextMovies := filepath.Join(p.root, "downloads", "2024-05-18", dataset.MoviesFile)
	writeSnapshot(t, nextMovies, titleHeader,
		"tt0000002\tmovie\tSecond\tSecond\t0\t2001\t\\N\t\\N\tComedy",
	)
	p.service.fetcher = &generationFetcher{
		diskFetcher: p.fetcher,
		overrides:   map[string]string{dataset.MoviesFile: nextMovies},
	}

	require.NoError(t, p.service.Refresh(ctx, RefreshOptions{}, EntityMovies))
	require.NoError(t, p.service.Refresh(ctx, RefreshOptions{}, EntityPeople))

	assert.Equal(t, 2, p.opens[dataset.PeopleFile])
	assert.Equal(t, []string{"Madonna"}, p.peopleNames(t))
}

type generationFetcher struct {
	*diskFetcher
	overrides map[string]string
}

func (f *generationFetcher) Fetch(ctx context.Context, name string) (string, error) {
	if path, ok := f.overrides[name]; ok {
		return path, nil
	}
	return f.diskFetcher.Fetch(ctx, name)
}

func TestRefresh_ExtractionErrorLeavesCheckpointOpen(t *testing.T) {
	p := newPipeline(t)
	p.snapshot(t, dataset.MoviesFile, titleHeader,
		"tt0000001\tmovie\tFirst\tFirst\t0\t1999\t\\N\t90\tDrama",
		"tt0000002\tmovie\ttoo\tfew\tfields",
	)
	ctx := context.Background()

	err := p.service.Refresh(ctx, RefreshOptions{}, EntityMovies)
	require.Error(t, err)
	assert.Equal(t, 0, p.count(t, "movies"))

	// The fixed snapshot of the same generation is picked up on the next run.
	p.snapshot(t, dataset.MoviesFile, titleHeader,
		"tt0000001\tmovie\tFirst\tFirst\t0\t1999\t\\N\t90\tDrama",
	)
	require.NoError(t, p.service.Refresh(ctx, RefreshOptions{}, EntityMovies))
	assert.Equal(t, 1, p.count(t, "movies"))
}

func TestRefresh_Viewings(t *testing.T) {
	p := newPipeline(t)
	p.standardSnapshots(t)
	ctx := context.Background()

	v := models.Viewing{IMDbID: "tt0000001", Title: "First", Year: 1999, Venue: "Home", Sequence: 1, Date: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}
	_, err := viewings.Save(p.viewings, &v)
	require.NoError(t, err)

	require.NoError(t, p.service.RefreshAll(ctx))
	assert.Equal(t, 1, p.count(t, "viewings"))

	// A viewing of a title that is not an accepted movie fails validation.
	doc := models.Viewing{IMDbID: "tt0000003", Title: "A Doc", Year: 2001, Venue: "Home", Sequence: 2, Date: time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)}
	_, err = viewings.Save(p.viewings, &doc)
	require.NoError(t, err)

	err = p.service.RebuildViewings(ctx)
	var validationErr *repository.ValidationError
	assert.True(t, errors.As(err, &validationErr), "got %v", err)
	assert.Equal(t, 1, p.count(t, "viewings"), "previous generation survives")
}

func TestRefresh_MovieFailureStopsDependents(t *testing.T) {
	ctx := context.Background()
	fetch := new(MockFetcher)
	loader := new(MockLoader)
	registry := new(MockRegistry)

	fetchErr := &fetcher.FetchError{Resource: dataset.MoviesFile, Op: "head", Err: errors.New("503 Service Unavailable")}
	fetch.On("Fetch", ctx, dataset.MoviesFile).Return("", fetchErr).Once()
	registry.On("Invalidate").Return().Once()

	service := NewRefreshService(fetch, loader, nil, registry, t.TempDir())
	err := service.RefreshAll(ctx)

	var got *fetcher.FetchError
	require.True(t, errors.As(err, &got))
	fetch.AssertNotCalled(t, "Fetch", ctx, dataset.PeopleFile)
	fetch.AssertNotCalled(t, "Fetch", ctx, dataset.AkaTitlesFile)
	loader.AssertNotCalled(t, "Rebuild", mock.Anything, mock.Anything, mock.Anything)
	registry.AssertExpectations(t)
}

func TestRefresh_InvalidatesAfterMovieRebuildFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, dataset.MoviesFile)
	writeSnapshot(t, path, titleHeader, "tt0000001\tmovie\tFirst\tFirst\t0\t1999\t\\N\t90\tDrama")

	fetch := new(MockFetcher)
	loader := new(MockLoader)
	registry := new(MockRegistry)
	fetch.On("Fetch", ctx, dataset.MoviesFile).Return(path, nil).Once()
	loader.On("Rebuild", ctx, "movies", 1).Return(&repository.ValidationError{Table: "movies", Err: errors.New("persisted 0 rows, submitted 1")}).Once()
	registry.On("Invalidate").Return().Once()

	service := NewRefreshService(fetch, loader, nil, registry, dir)
	err := service.RefreshAll(ctx)

	var validationErr *repository.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	registry.AssertExpectations(t)
	registry.AssertNotCalled(t, "AcceptedMovieIDs", mock.Anything)
	assert.NoFileExists(t, path+".loaded")
}

func TestRefresh_PeopleUseRegistry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, dataset.PeopleFile)
	writeSnapshot(t, path, nameHeader,
		"nm0000001\tJohn Smith\t\\N\t\\N\t\\N\ttt0000001",
		"nm0000002\tJane Doe\t\\N\t\\N\t\\N\ttt0000002",
	)

	fetch := new(MockFetcher)
	loader := new(MockLoader)
	registry := new(MockRegistry)
	fetch.On("Fetch", ctx, dataset.PeopleFile).Return(path, nil).Once()
	registry.On("AcceptedMovieIDs", ctx).Return(dataset.NewIDSet("tt0000002"), nil).Once()
	loader.On("Rebuild", ctx, "people", 1).Return(nil).Once()
	auditor := new(MockAuditor)
	auditor.On("Log", ctx, "table.rebuild", "refresh", "people", mock.MatchedBy(func(details map[string]any) bool {
		return details["accepted"] == 1 && details["skipped"] == 1 && details["source"] == path
	})).Once()

	service := NewRefreshService(fetch, loader, nil, registry, dir)
	service.SetAuditor(auditor)
	require.NoError(t, service.Refresh(ctx, RefreshOptions{}, EntityPeople))

	loader.AssertExpectations(t)
	auditor.AssertExpectations(t)
	assert.FileExists(t, path+".loaded")
}

func TestRefresh_StaticRegistry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, dataset.AkaTitlesFile)
	writeSnapshot(t, path, akaHeader,
		"tt0000001\t1\tErste\tDE\t\\N\t\\N\t\\N\t0",
		"tt0000009\t1\tNeunte\tDE\t\\N\t\\N\t\\N\t0",
	)

	fetch := new(MockFetcher)
	loader := new(MockLoader)
	fetch.On("Fetch", ctx, dataset.AkaTitlesFile).Return(path, nil).Once()
	loader.On("Rebuild", ctx, "aka_titles", 1).Return(nil).Once()

	registry := dataset.StaticRegistry{IDs: dataset.NewIDSet("tt0000001")}
	service := NewRefreshService(fetch, loader, nil, registry, dir)
	require.NoError(t, service.Refresh(ctx, RefreshOptions{}, EntityAkaTitles))
	loader.AssertExpectations(t)
}

func TestParseEntity(t *testing.T) {
	e, err := ParseEntity("aka_titles")
	require.NoError(t, err)
	assert.Equal(t, EntityAkaTitles, e)

	_, err = ParseEntity("episodes")
	assert.ErrorIs(t, err, shared.ErrUnknownEntity)
}

func TestInRefreshOrder(t *testing.T) {
	got := inRefreshOrder([]Entity{EntityViewings, EntityPeople, EntityMovies, EntityPeople})
	assert.Equal(t, []Entity{EntityMovies, EntityPeople, EntityViewings}, got)
}
