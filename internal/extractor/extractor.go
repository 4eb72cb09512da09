// Package extractor streams rows out of gzip-compressed, tab-separated
// snapshot files and keeps the per-generation completion checkpoint.
package extractor

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// nullField is the upstream marker for a missing value.
const nullField = `\N`

// Snapshot lines can be long (alternate title lists, profession tags).
const maxLineSize = 16 * 1024 * 1024

// ExtractionError reports unreadable or malformed snapshot input.
type ExtractionError struct {
	Path string
	Line int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("extract %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Row is one parsed snapshot line. Invalid entries are upstream nulls.
type Row []sql.NullString

// String returns field i, or "" when it is null or out of range.
func (r Row) String(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i].String
}

// Null returns field i as stored, or an invalid value when out of range.
func (r Row) Null(i int) sql.NullString {
	if i < 0 || i >= len(r) {
		return sql.NullString{}
	}
	return r[i]
}

// Has reports whether field i is present and not null.
func (r Row) Has(i int) bool {
	return i >= 0 && i < len(r) && r[i].Valid
}

// Required returns field i or an error if it is null.
func (r Row) Required(i int, name string) (string, error) {
	if !r.Has(i) {
		return "", fmt.Errorf("missing required field %q", name)
	}
	return r[i].String, nil
}

// Int parses field i as an optional integer.
func (r Row) Int(i int, name string) (sql.NullInt64, error) {
	if !r.Has(i) {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(r[i].String, 10, 64)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("field %q: %w", name, err)
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

// Reader iterates the rows of a snapshot. The header line is skipped.
type Reader struct {
	path    string
	scanner *bufio.Scanner
	closers []io.Closer
	columns []string
	row     Row
	line    int
	err     error
}

// Open opens a gzip-compressed snapshot file for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, &ExtractionError{Path: path, Err: err}
	}

	r := newReader(path, gz)
	r.closers = []io.Closer{gz, f}
	return r, r.readHeader()
}

// NewReader reads an uncompressed tab-separated stream.
func NewReader(name string, src io.Reader) (*Reader, error) {
	r := newReader(name, src)
	return r, r.readHeader()
}

func newReader(path string, src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{path: path, scanner: scanner}
}

func (r *Reader) readHeader() error {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			r.err = &ExtractionError{Path: r.path, Line: 1, Err: err}
		} else {
			r.err = &ExtractionError{Path: r.path, Line: 1, Err: errors.New("missing header line")}
		}
		_ = r.Close()
		return r.err
	}
	r.line = 1
	r.columns = strings.Split(r.scanner.Text(), "\t")
	return nil
}

// Columns returns the header field names.
func (r *Reader) Columns() []string { return r.columns }

// Next advances to the next row. It returns false at the end of input or on error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			r.err = &ExtractionError{Path: r.path, Line: r.line + 1, Err: err}
		}
		return false
	}
	r.line++

	fields := strings.Split(r.scanner.Text(), "\t")
	if len(fields) != len(r.columns) {
		r.err = &ExtractionError{
			Path: r.path,
			Line: r.line,
			Err:  fmt.Errorf("expected %d fields, got %d", len(r.columns), len(fields)),
		}
		return false
	}

	row := make(Row, len(fields))
	for i, f := range fields {
		if f != nullField {
			row[i] = sql.NullString{String: f, Valid: true}
		}
	}
	r.row = row
	return true
}

// Row returns the current row.
func (r *Reader) Row() Row { return r.row }

// Line returns the 1-based line number of the current row.
func (r *Reader) Line() int { return r.line }

// Err returns the first error encountered while reading.
func (r *Reader) Err() error { return r.err }

// Fail records a decoding error for the current row and stops iteration.
func (r *Reader) Fail(err error) error {
	if r.err == nil {
		r.err = &ExtractionError{Path: r.path, Line: r.line, Err: err}
	}
	return r.err
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}
