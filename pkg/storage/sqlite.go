package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) a SQLite database file and returns a
// SQL backend with its table in place. The database is closed by Close.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQL, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	opts = append(opts, WithSQLDialect(DialectSQLite))
	s := NewSQL(db, opts...)
	s.owned = true

	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create sqlite table: %w", err)
	}
	return s, nil
}
