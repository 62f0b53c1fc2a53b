package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/dispatchsim/core/records"
)

type memStore struct{ recs []records.Record }

func (m *memStore) Append(_ context.Context, r records.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q records.Query) ([]records.Record, error) {
	var res []records.Record
	for _, r := range m.recs {
		if !q.Match(r) {
			continue
		}
		res = append(res, r)
		if q.Limit > 0 && len(res) == q.Limit {
			break
		}
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	for i, actor := range []int{0, 1, 1} {
		if err := store.Append(context.Background(), records.Record{RunID: "r1", ID: i, Actor: actor}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	h := NewHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/records?run_id=r1&actor=1&since_id=2", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []records.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].ID != 2 {
		t.Fatalf("unexpected records %+v", out)
	}

	// unauthorized
	req = httptest.NewRequest("GET", "/api/records", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestHandler_BadQuery(t *testing.T) {
	h := NewHandler(&memStore{}, "")
	for _, target := range []string{"/api/records?limit=x", "/api/records?actor=-", "/api/records?since_id=1.5"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, rr.Code)
		}
	}
}

func TestHandler_EmptyIsArray(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(&memStore{}, "").ServeHTTP(rr, httptest.NewRequest("GET", "/api/records", nil))
	if got := rr.Body.String(); got != "[]\n" {
		t.Fatalf("body %q", got)
	}
	rr = httptest.NewRecorder()
	NewHandler(&memStore{}, "").ServeHTTP(rr, httptest.NewRequest("POST", "/api/records", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
