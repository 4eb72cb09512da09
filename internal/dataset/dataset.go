// Package dataset applies the per-entity acceptance rules to snapshot rows
// and keeps the registry of accepted movie identifiers.
package dataset

import (
	"fmt"

	"moviedb/internal/extractor"
	"moviedb/internal/logging"

	"github.com/dustin/go-humanize"
)

// Snapshot file names published upstream.
const (
	MoviesFile    = "title.basics.tsv.gz"
	PeopleFile    = "name.basics.tsv.gz"
	AkaTitlesFile = "title.akas.tsv.gz"
)

// Rows is the row stream consumed by the extractors. *extractor.Reader implements it.
type Rows interface {
	Next() bool
	Row() extractor.Row
	Err() error
	Fail(err error) error
}

// checkWidth rejects rows narrower than the columns an extractor decodes.
func checkWidth(row extractor.Row, columns int) error {
	if len(row) < columns {
		return fmt.Errorf("expected at least %d fields, got %d", columns, len(row))
	}
	return nil
}

// Stats counts what happened to the rows of one extraction pass.
type Stats struct {
	Rows     int // rows read
	Accepted int // rows kept
	Rejected int // rows failing the content rules
	Skipped  int // rows whose referenced movie is not accepted
}

func (s Stats) log(entity string) {
	logging.Log.WithField("entity", entity).Infof(
		"Extracted %s %s from %s rows (%s rejected, %s without an accepted movie).",
		humanize.Comma(int64(s.Accepted)), entity, humanize.Comma(int64(s.Rows)),
		humanize.Comma(int64(s.Rejected)), humanize.Comma(int64(s.Skipped)),
	)
}
