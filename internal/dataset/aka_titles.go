package dataset

import (
	"database/sql"
	"fmt"

	"moviedb/internal/extractor"
	"moviedb/internal/models"
)

// title.akas.tsv column positions.
const (
	akaTitleID = iota
	akaOrdering
	akaTitle
	akaRegion
	akaLanguage
	akaTypes
	akaAttributes
	akaIsOriginal
	akaColumns
)

// ExtractAkaTitles keeps every alternate title whose movie is accepted.
// Upstream ordering numbers are kept as the sequence.
func ExtractAkaTitles(rows Rows, movieIDs IDSet) ([]models.AkaTitle, Stats, error) {
	var akaTitles []models.AkaTitle
	var stats Stats

	for rows.Next() {
		stats.Rows++
		row := rows.Row()
		if err := checkWidth(row, akaColumns); err != nil {
			return nil, stats, rows.Fail(err)
		}
		if !movieIDs.Contains(row.String(akaTitleID)) {
			stats.Skipped++
			continue
		}

		aka, err := decodeAkaTitle(row)
		if err != nil {
			return nil, stats, rows.Fail(err)
		}
		akaTitles = append(akaTitles, aka)
	}
	if err := rows.Err(); err != nil {
		return nil, stats, err
	}

	stats.Accepted = len(akaTitles)
	stats.log("aka_titles")
	return akaTitles, stats, nil
}

func decodeAkaTitle(row extractor.Row) (models.AkaTitle, error) {
	ordering, err := row.Int(akaOrdering, "ordering")
	if err != nil {
		return models.AkaTitle{}, err
	}
	if !ordering.Valid {
		return models.AkaTitle{}, fmt.Errorf("missing required field %q", "ordering")
	}
	title, err := row.Required(akaTitle, "title")
	if err != nil {
		return models.AkaTitle{}, err
	}

	var isOriginal sql.NullBool
	if row.Has(akaIsOriginal) {
		switch row.String(akaIsOriginal) {
		case "0":
			isOriginal = sql.NullBool{Bool: false, Valid: true}
		case "1":
			isOriginal = sql.NullBool{Bool: true, Valid: true}
		default:
			return models.AkaTitle{}, fmt.Errorf("field %q: invalid flag %q", "isOriginalTitle", row.String(akaIsOriginal))
		}
	}

	return models.AkaTitle{
		MovieIMDbID:     row.String(akaTitleID),
		Sequence:        ordering.Int64,
		Title:           title,
		Region:          row.Null(akaRegion),
		Language:        row.Null(akaLanguage),
		Types:           row.Null(akaTypes),
		Attributes:      row.Null(akaAttributes),
		IsOriginalTitle: isOriginal,
	}, nil
}
