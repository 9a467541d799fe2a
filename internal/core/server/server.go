// Package server wires the HTTP routes and runs the listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/street-resolver/internal/core/health"
	middleware "github.com/mohammed-shakir/street-resolver/internal/core/middleware"
	"github.com/mohammed-shakir/street-resolver/internal/core/router"
	"github.com/mohammed-shakir/street-resolver/internal/resolver"
)

const (
	defaultWriteTimeout = 120 * time.Second
	writeMargin         = 10 * time.Second
)

type Options struct {
	Metrics bool
	Ready   map[string]health.Check
	// WriteTimeout bounds a whole /resolve response. Zero means 120s.
	WriteTimeout time.Duration
}

// WriteTimeoutFor is the worst case of a resolution where every tier walks
// every mirror and each call runs to perCall, plus a margin to write the
// degraded result.
func WriteTimeoutFor(tiers, endpoints int, perCall time.Duration) time.Duration {
	if tiers <= 0 || endpoints <= 0 || perCall <= 0 {
		return defaultWriteTimeout
	}
	return time.Duration(tiers*endpoints)*perCall + writeMargin
}

// Handler builds the route table.
func Handler(logger *slog.Logger, res resolver.Interface, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(opts.Ready, 2*time.Second))
	if opts.Metrics {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}
	r.Get("/resolve", router.HandleResolve(logger, res))
	return r
}

func newHTTPServer(addr string, logger *slog.Logger, res resolver.Interface, opts Options) *http.Server {
	wt := opts.WriteTimeout
	if wt <= 0 {
		wt = defaultWriteTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           Handler(logger, res, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      wt,
		IdleTimeout:       60 * time.Second,
	}
}

// sets up http and serves until ctx is done
func Run(ctx context.Context, addr string, logger *slog.Logger, res resolver.Interface, opts Options) error {
	srv := newHTTPServer(addr, logger, res, opts)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
