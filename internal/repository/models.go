package repository

import (
	"fmt"
	"sort"
)

// Record is one row submitted to a table rebuild, its values ordered like
// the table definition's Columns.
type Record interface {
	Values() []any
}

// Records converts a slice of entities to records, keeping their order.
func Records[T Record](items []T) []Record {
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = item
	}
	return records
}

// SortedRecords converts a keyed collection to records ordered by key.
func SortedRecords[T Record](items map[string]T) []Record {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]Record, len(keys))
	for i, k := range keys {
		records[i] = items[k]
	}
	return records
}

// ValidationError reports a rebuilt table whose persisted content does not
// match what was submitted, or whose references do not resolve.
type ValidationError struct {
	Table string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate table %s: %v", e.Table, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
