package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqlStore holds the queries shared by the SQL backends. bind renders the
// n-th placeholder of the driver's dialect.
type sqlStore struct {
	db   *sql.DB
	bind func(n int) string
}

const recordColumns = `run_id, task_id, x, y, arrival, completion, initial_wait, wait, actor, sector, service_time`

func (s *sqlStore) migrate(ctx context.Context, schema string) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		if cerr := s.db.Close(); cerr != nil {
			return fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return err
	}
	return nil
}

// Append writes the record to the database.
func (s *sqlStore) Append(ctx context.Context, rec Record) error {
	ph := make([]string, 11)
	for i := range ph {
		ph[i] = s.bind(i + 1)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_records (`+recordColumns+`) VALUES (`+strings.Join(ph, ", ")+`)`,
		rec.RunID, rec.ID, rec.X, rec.Y, rec.Arrival, rec.Completion,
		rec.InitialWait, rec.Wait, rec.Actor, rec.Sector, rec.ServiceTime)
	return err
}

// Query returns records matching q ordered by completion time.
func (s *sqlStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT ` + recordColumns + ` FROM task_records WHERE task_id >= ` + s.bind(1)
	args = append(args, q.SinceID)
	if q.RunID != "" {
		args = append(args, q.RunID)
		query += ` AND run_id = ` + s.bind(len(args))
	}
	if q.Actor != nil {
		args = append(args, *q.Actor)
		query += ` AND actor = ` + s.bind(len(args))
	}
	query += ` ORDER BY completion, task_id`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RunID, &r.ID, &r.X, &r.Y, &r.Arrival, &r.Completion,
			&r.InitialWait, &r.Wait, &r.Actor, &r.Sector, &r.ServiceTime); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *sqlStore) Close() error { return s.db.Close() }
