package records

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{sqlStore{db: db, bind: func(int) string { return "?" }}}
	schema := `CREATE TABLE IF NOT EXISTS task_records (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT,
        task_id INTEGER,
        x REAL,
        y REAL,
        arrival REAL,
        completion REAL,
        initial_wait REAL,
        wait REAL,
        actor INTEGER,
        sector INTEGER,
        service_time REAL
    );`
	if err := s.migrate(context.Background(), schema); err != nil {
		return nil, err
	}
	return s, nil
}
