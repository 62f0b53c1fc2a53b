// Package api serves the HTTP query endpoints of a running service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	apirecords "github.com/kilianp07/dispatchsim/api/records"
	"github.com/kilianp07/dispatchsim/api/runs"
	"github.com/kilianp07/dispatchsim/core/records"
	"github.com/kilianp07/dispatchsim/infra/logger"
)

// Config enables the API when Addr is set.
type Config struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// NewMux routes /api/records and /api/runs.
func NewMux(store records.Store, src runs.Source, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/records", apirecords.NewHandler(store, token))
	rh := runs.NewHandler(src, token)
	mux.Handle("/api/runs", rh)
	mux.Handle("/api/runs/", rh)
	return mux
}

// Serve listens on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("api")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("api server shutdown: %v", err)
		}
	}()
	log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
