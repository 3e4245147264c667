package storage

import "github.com/kmorrow/daybell/internal/storage/sqlite"

// NewSQLiteStore returns the sqlite-backed storage provider.
func NewSQLiteStore(path string) Provider {
	return sqlite.NewStore(path)
}
