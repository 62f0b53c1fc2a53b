// Package backfill copies completion records between stores, e.g. from the
// JSONL files of past runs into Postgres.
package backfill

import (
	"context"
	"fmt"

	"github.com/kilianp07/dispatchsim/core/records"
)

// Copy appends to dst every record of src matching q and returns how many
// were written before the first failure.
func Copy(ctx context.Context, dst, src records.Store, q records.Query) (int, error) {
	recs, err := src.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("read records: %w", err)
	}
	for i, r := range recs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := dst.Append(ctx, r); err != nil {
			return i, fmt.Errorf("write record %s/%d: %w", r.RunID, r.ID, err)
		}
	}
	return len(recs), nil
}
