// filepath: internal/db/migrations/embed.go
// Package migrations holds the goose migrations of the bookkeeping tables.
// The entity tables are rebuilt by the refresh pipeline and are not migrated.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
