// filepath: internal/models/models.go
// Package models contains the core data structures for the application.
package models

import (
	"database/sql"
	"strconv"
	"time"
)

// Movie is a theatrical feature accepted from the title snapshot.
type Movie struct {
	IMDbID         string
	Title          string
	Year           int64
	RuntimeMinutes sql.NullInt64
}

// Values returns the insert parameters in movies column order.
func (m Movie) Values() []any {
	return []any{m.IMDbID, m.Title, m.Year, m.RuntimeMinutes}
}

// Person is a cast or crew member known for at least one accepted movie.
type Person struct {
	IMDbID            string
	FullName          string
	FirstName         string
	LastName          string
	BirthYear         sql.NullInt64
	DeathYear         sql.NullInt64
	PrimaryProfession sql.NullString
	KnownForTitleIDs  string
}

// Values returns the insert parameters in people column order.
func (p Person) Values() []any {
	return []any{
		p.IMDbID, p.FullName, p.FirstName, p.LastName,
		p.BirthYear, p.DeathYear, p.PrimaryProfession, p.KnownForTitleIDs,
	}
}

// AkaTitle is a localized or alternate title of an accepted movie.
type AkaTitle struct {
	MovieIMDbID     string
	Sequence        int64
	Title           string
	Region          sql.NullString
	Language        sql.NullString
	Types           sql.NullString
	Attributes      sql.NullString
	IsOriginalTitle sql.NullBool
}

// Values returns the insert parameters in aka_titles column order.
func (a AkaTitle) Values() []any {
	return []any{
		a.MovieIMDbID, a.Sequence, a.Title, a.Region,
		a.Language, a.Types, a.Attributes, a.IsOriginalTitle,
	}
}

// DateLayout is the on-disk and in-database format of viewing dates.
const DateLayout = "2006-01-02"

// Viewing is one entry of the personal viewing history.
type Viewing struct {
	IMDbID   string
	Title    string
	Year     int64
	Venue    string
	Sequence int64
	Date     time.Time
	FilePath string
}

// TitleWithYear renders the title the way viewing files store it.
func (v Viewing) TitleWithYear() string {
	return v.Title + " (" + strconv.FormatInt(v.Year, 10) + ")"
}

// Values returns the insert parameters in viewings column order.
func (v Viewing) Values() []any {
	filePath := sql.NullString{String: v.FilePath, Valid: v.FilePath != ""}
	return []any{
		v.IMDbID, v.Title, v.Year, v.Venue,
		v.Sequence, v.Date.Format(DateLayout), filePath,
	}
}

// RefreshRecord is one row of the refresh history.
type RefreshRecord struct {
	ID         string
	Entity     string
	SourcePath string
	Rows       int
	Accepted   int
	Rejected   int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// PruneReport summarizes one housekeeping run over the snapshot generations.
type PruneReport struct {
	GenerationsRemoved int
	SpaceFreedBytes    int64
	Message            string
}
