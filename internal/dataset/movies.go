package dataset

import (
	"strconv"
	"strings"

	"moviedb/internal/extractor"
	"moviedb/internal/models"
)

// title.basics.tsv column positions.
const (
	titleID = iota
	titleType
	titlePrimary
	titleOriginal
	titleIsAdult
	titleStartYear
	titleEndYear
	titleRuntime
	titleGenres
	titleColumns
)

const (
	featureType      = "movie"
	documentaryGenre = "Documentary"
)

// ExtractMovies keeps every theatrical feature that is not adult, has a
// release year and is not a documentary.
func ExtractMovies(rows Rows) (map[string]models.Movie, Stats, error) {
	movies := make(map[string]models.Movie)
	var stats Stats

	for rows.Next() {
		stats.Rows++
		row := rows.Row()
		if err := checkWidth(row, titleColumns); err != nil {
			return nil, stats, rows.Fail(err)
		}
		if !IsAcceptedMovie(row) {
			stats.Rejected++
			continue
		}

		movie, err := decodeMovie(row)
		if err != nil {
			return nil, stats, rows.Fail(err)
		}
		movies[movie.IMDbID] = movie
	}
	if err := rows.Err(); err != nil {
		return nil, stats, err
	}

	stats.Accepted = len(movies)
	stats.log("movies")
	return movies, stats, nil
}

// IsAcceptedMovie applies the movie content rules to a title row.
func IsAcceptedMovie(row extractor.Row) bool {
	if row.String(titleType) != featureType {
		return false
	}
	if row.String(titleIsAdult) == "1" {
		return false
	}
	if !row.Has(titleStartYear) {
		return false
	}
	if _, err := strconv.ParseInt(row.String(titleStartYear), 10, 64); err != nil {
		return false
	}
	if row.Has(titleGenres) {
		for _, genre := range strings.Split(row.String(titleGenres), ",") {
			if genre == documentaryGenre {
				return false
			}
		}
	}
	return true
}

func decodeMovie(row extractor.Row) (models.Movie, error) {
	id, err := row.Required(titleID, "tconst")
	if err != nil {
		return models.Movie{}, err
	}
	title, err := row.Required(titlePrimary, "primaryTitle")
	if err != nil {
		return models.Movie{}, err
	}
	year, err := row.Int(titleStartYear, "startYear")
	if err != nil {
		return models.Movie{}, err
	}
	runtime, err := row.Int(titleRuntime, "runtimeMinutes")
	if err != nil {
		return models.Movie{}, err
	}

	return models.Movie{
		IMDbID:         id,
		Title:          title,
		Year:           year.Int64,
		RuntimeMinutes: runtime,
	}, nil
}
