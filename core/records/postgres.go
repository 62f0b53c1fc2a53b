package records

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists records to PostgreSQL through the pgx driver.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore connects to dsn and ensures schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{sqlStore{db: db, bind: func(n int) string { return fmt.Sprintf("$%d", n) }}}
	schema := `CREATE TABLE IF NOT EXISTS task_records (
        id BIGSERIAL PRIMARY KEY,
        run_id TEXT,
        task_id INTEGER,
        x DOUBLE PRECISION,
        y DOUBLE PRECISION,
        arrival DOUBLE PRECISION,
        completion DOUBLE PRECISION,
        initial_wait DOUBLE PRECISION,
        wait DOUBLE PRECISION,
        actor INTEGER,
        sector INTEGER,
        service_time DOUBLE PRECISION
    )`
	if err := s.migrate(ctx, schema); err != nil {
		return nil, err
	}
	return s, nil
}
