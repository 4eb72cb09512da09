// filepath: internal/repository/schema.go
package repository

// TableDefinition is the fixed schema of one rebuildable table. Columns must
// list the insert columns in the order of the records' Values.
type TableDefinition struct {
	Name    string
	DDL     string
	Columns []string
	Indexes []string // one column per index

	// EnforceReferences rebuilds the table with foreign keys checked at
	// commit. The referenced movies table itself is rebuilt without.
	EnforceReferences bool
}

var MoviesTable = TableDefinition{
	Name: "movies",
	DDL: `
		CREATE TABLE movies (
			imdb_id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			year INTEGER NOT NULL,
			runtime_minutes INTEGER
		);`,
	Columns: []string{"imdb_id", "title", "year", "runtime_minutes"},
	Indexes: []string{"title"},
}

var PeopleTable = TableDefinition{
	Name: "people",
	DDL: `
		CREATE TABLE people (
			imdb_id TEXT PRIMARY KEY NOT NULL,
			full_name TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			birth_year INTEGER,
			death_year INTEGER,
			primary_profession TEXT,
			known_for_title_ids TEXT NOT NULL
		);`,
	Columns: []string{
		"imdb_id", "full_name", "first_name", "last_name",
		"birth_year", "death_year", "primary_profession", "known_for_title_ids",
	},
	Indexes: []string{"full_name"},
}

var AkaTitlesTable = TableDefinition{
	Name: "aka_titles",
	DDL: `
		CREATE TABLE aka_titles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			movie_imdb_id TEXT NOT NULL
				REFERENCES movies(imdb_id) DEFERRABLE INITIALLY DEFERRED,
			sequence INTEGER NOT NULL,
			title TEXT NOT NULL,
			region TEXT,
			language TEXT,
			types TEXT,
			attributes TEXT,
			is_original_title BOOLEAN
		);`,
	Columns: []string{
		"movie_imdb_id", "sequence", "title", "region",
		"language", "types", "attributes", "is_original_title",
	},
	Indexes:           []string{"title", "movie_imdb_id"},
	EnforceReferences: true,
}

var ViewingsTable = TableDefinition{
	Name: "viewings",
	DDL: `
		CREATE TABLE viewings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			movie_imdb_id TEXT NOT NULL
				REFERENCES movies(imdb_id) DEFERRABLE INITIALLY DEFERRED,
			title TEXT NOT NULL,
			year INTEGER NOT NULL,
			venue TEXT NOT NULL,
			sequence INTEGER NOT NULL UNIQUE,
			date DATE NOT NULL,
			file_path TEXT
		);`,
	Columns: []string{
		"movie_imdb_id", "title", "year", "venue",
		"sequence", "date", "file_path",
	},
	Indexes:           []string{"venue", "movie_imdb_id"},
	EnforceReferences: true,
}

// Tables lists every rebuildable table, referenced table first.
var Tables = []TableDefinition{MoviesTable, PeopleTable, AkaTitlesTable, ViewingsTable}
