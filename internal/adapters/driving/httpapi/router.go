// Package httpapi provides the HTTP control plane: start, stop and watch
// dumps, list servers and categories, browse run history and scrape metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// RouterDeps holds what the routes need.
type RouterDeps struct {
	Dump driving.DumpService

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the chi router for every control route.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	h := NewDumpHandler(deps.Dump)

	r.Route("/api", func(r chi.Router) {
		r.Route("/dump", func(r chi.Router) {
			r.Post("/", h.Start)
			r.Post("/stop", h.Stop)
			r.Get("/progress", h.Progress)
			r.Get("/report", h.Report)
		})
		r.Get("/servers", h.Servers)
		r.Get("/categories", h.Categories)
		r.Post("/archive/open", h.OpenArchive)
		r.Get("/runs", h.Runs)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("http: %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// Serve runs handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := srv.ListenAndServe()
	close(done)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
