// Package records exposes the record store over HTTP.
package records

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/dispatchsim/core/records"
)

// NewHandler returns an HTTP handler serving GET /api/records. Requests must
// include an Authorization header with "Bearer <token>" when token is
// non-empty. Supported query parameters are run_id, since_id, actor and
// limit.
func NewHandler(store records.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		recs, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []records.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(recs); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func parseQuery(r *http.Request) (records.Query, error) {
	v := r.URL.Query()
	q := records.Query{RunID: v.Get("run_id")}
	var err error
	if s := v.Get("since_id"); s != "" {
		if q.SinceID, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("actor"); s != "" {
		a, err := strconv.Atoi(s)
		if err != nil {
			return q, err
		}
		q.Actor = &a
	}
	return q, nil
}
