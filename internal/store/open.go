package store

import "strings"

const DefaultSQLitePath = "data/riddle-bench.db"

// Open returns a SQLite-backed store at path, creating it if needed. An
// empty path uses DefaultSQLitePath; ":memory:" opens an ephemeral store.
func Open(path string) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultSQLitePath
	}
	return NewSQLiteStore(path)
}
