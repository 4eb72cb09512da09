package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"moviedb/internal/logging"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/patrickmn/go-cache"
)

// IDSet is a set of IMDb identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Fingerprint identifies the content of the set. Equal sets share a
// fingerprint regardless of insertion order.
func (s IDSet) Fingerprint() string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	digest := xxhash.New()
	for _, id := range ids {
		digest.WriteString(id)
		digest.WriteString("\n")
	}
	return fmt.Sprintf("%d:%016x", len(ids), digest.Sum64())
}

// Registry answers which movie identifiers are currently accepted.
//
// Invalidate must be called right after the movies table is rebuilt and
// before any people or alternate titles are extracted.
type Registry interface {
	AcceptedMovieIDs(ctx context.Context) (IDSet, error)
	Invalidate()
}

// MovieIDSource reads the identifiers of the persisted movies table.
type MovieIDSource interface {
	MovieIDs(ctx context.Context) ([]string, error)
}

const acceptedMovieIDsKey = "accepted_movie_ids"

// CachedRegistry loads the accepted ids once per process and keeps them
// until Invalidate is called.
type CachedRegistry struct {
	source MovieIDSource
	cache  *cache.Cache
	mu     sync.Mutex
}

var _ Registry = (*CachedRegistry)(nil)

// NewRegistry creates a registry backed by source.
func NewRegistry(source MovieIDSource) *CachedRegistry {
	return &CachedRegistry{
		source: source,
		cache:  cache.New(cache.NoExpiration, 0),
	}
}

// AcceptedMovieIDs returns the cached set, loading it on first use.
func (r *CachedRegistry) AcceptedMovieIDs(ctx context.Context) (IDSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, found := r.cache.Get(acceptedMovieIDsKey); found {
		return cached.(IDSet), nil
	}

	ids, err := r.source.MovieIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accepted movie ids: %w", err)
	}
	set := NewIDSet(ids...)
	r.cache.SetDefault(acceptedMovieIDsKey, set)

	logging.Log.Debugf("Loaded %s accepted movie ids.", humanize.Comma(int64(len(set))))
	return set, nil
}

// Invalidate drops the cached set.
func (r *CachedRegistry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Flush()
}

// StaticRegistry serves a fixed set. Invalidate is a no-op.
type StaticRegistry struct {
	IDs IDSet
}

var _ Registry = StaticRegistry{}

func (s StaticRegistry) AcceptedMovieIDs(context.Context) (IDSet, error) { return s.IDs, nil }

func (s StaticRegistry) Invalidate() {}
