package dataset

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"moviedb/internal/extractor"
	"moviedb/internal/models"
)

// name.basics.tsv column positions.
const (
	nameID = iota
	namePrimary
	nameBirthYear
	nameDeathYear
	nameProfession
	nameKnownFor
	nameColumns
)

// ExtractPeople keeps every person known for at least one accepted movie.
func ExtractPeople(rows Rows, movieIDs IDSet) (map[string]models.Person, Stats, error) {
	people := make(map[string]models.Person)
	var stats Stats

	for rows.Next() {
		stats.Rows++
		row := rows.Row()
		if err := checkWidth(row, nameColumns); err != nil {
			return nil, stats, rows.Fail(err)
		}
		if !row.Has(nameKnownFor) {
			stats.Rejected++
			continue
		}
		if !knownForAcceptedMovie(row.String(nameKnownFor), movieIDs) {
			stats.Skipped++
			continue
		}

		person, err := decodePerson(row)
		if err != nil {
			return nil, stats, rows.Fail(err)
		}
		people[person.IMDbID] = person
	}
	if err := rows.Err(); err != nil {
		return nil, stats, err
	}

	stats.Accepted = len(people)
	stats.log("people")
	return people, stats, nil
}

func knownForAcceptedMovie(knownFor string, movieIDs IDSet) bool {
	for _, id := range strings.Split(knownFor, ",") {
		if movieIDs.Contains(id) {
			return true
		}
	}
	return false
}

// SplitName splits a full name at its first whitespace. A name without
// whitespace is all last name.
func SplitName(fullName string) (first, last string) {
	i := strings.IndexFunc(fullName, unicode.IsSpace)
	if i < 0 {
		return "", fullName
	}
	_, size := utf8.DecodeRuneInString(fullName[i:])
	return fullName[:i], fullName[i+size:]
}

func decodePerson(row extractor.Row) (models.Person, error) {
	id, err := row.Required(nameID, "nconst")
	if err != nil {
		return models.Person{}, err
	}
	fullName, err := row.Required(namePrimary, "primaryName")
	if err != nil {
		return models.Person{}, err
	}
	birthYear, err := row.Int(nameBirthYear, "birthYear")
	if err != nil {
		return models.Person{}, err
	}
	deathYear, err := row.Int(nameDeathYear, "deathYear")
	if err != nil {
		return models.Person{}, err
	}

	first, last := SplitName(fullName)
	return models.Person{
		IMDbID:            id,
		FullName:          fullName,
		FirstName:         first,
		LastName:          last,
		BirthYear:         birthYear,
		DeathYear:         deathYear,
		PrimaryProfession: row.Null(nameProfession),
		KnownForTitleIDs:  row.String(nameKnownFor),
	}, nil
}
