// Package runs exposes the statistics of finished runs over HTTP.
package runs

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kilianp07/dispatchsim/core/sim"
)

// Source lists the finished runs, oldest first.
type Source func() []sim.Stats

type runView struct {
	sim.Stats
	AvgWait float64 `json:"avg_wait"`
}

func view(st sim.Stats) runView { return runView{Stats: st, AvgWait: st.AvgWait()} }

// NewHandler serves GET /api/runs and GET /api/runs/{run_id}. The bearer
// token is checked when non-empty.
func NewHandler(src Source, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		all := src()
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs"), "/")
		var body any
		if id == "" {
			out := make([]runView, len(all))
			for i, st := range all {
				out[i] = view(st)
			}
			body = out
		} else {
			found := false
			for _, st := range all {
				if st.RunID == id {
					body, found = view(st), true
					break
				}
			}
			if !found {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
}
