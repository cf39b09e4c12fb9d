package core

import (
	"context"

	"experimentdb/internal/infra/persistence/sqlite"
)

// NewSQLiteStore opens the SQLite-backed store at path (empty selects the
// default file) and applies the schema.
func NewSQLiteStore(ctx context.Context, path string) (*sqlite.Store, error) {
	return sqlite.NewStore(ctx, path)
}
