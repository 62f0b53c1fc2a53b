package records

import (
	"context"
	"testing"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:records_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Append(ctx, sample("run-a", i, i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.Append(ctx, sample("run-b", 9, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	actor := 1
	out, err := store.Query(ctx, Query{RunID: "run-a", Actor: &actor})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0] != sample("run-a", 1, 1) {
		t.Fatalf("record mismatch %+v", out[0])
	}
	all, err := store.Query(ctx, Query{SinceID: 1, Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("unexpected ordering %+v", all)
	}
}
