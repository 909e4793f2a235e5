// Package web exposes the job store over a JSON HTTP API: the listing
// endpoint runs the query pipeline against the store's snapshot, the
// mutation endpoints drive the optimistic add/update/delete operations.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/drag1web/job-board/app/store"
)

// Server represents the web server
type Server struct {
	jobs          *store.Store
	version       string
	mutateLimiter *limiter.Limiter // caps the rate of mutating calls per client
}

// Config holds server configuration
type Config struct {
	Store   *store.Store
	Version string
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("web server initialization failed: Store is required")
	}
	return &Server{jobs: cfg.Store, version: cfg.Version, mutateLimiter: tollbooth.NewLimiter(10, nil)}, nil
}

// Run starts the web server and blocks until the context is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("job-board", "drag1web", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)

		api.HandleFunc("GET /jobs", s.handleListJobs)
		api.HandleFunc("GET /jobs/{id}", s.handleGetJob)

		// mutations go through the rate limiter
		api.With(tollbooth.HTTPMiddleware(s.mutateLimiter)).HandleFunc("POST /jobs", s.handleAddJob)
		api.With(tollbooth.HTTPMiddleware(s.mutateLimiter)).HandleFunc("PUT /jobs/{id}", s.handleUpdateJob)
		api.With(tollbooth.HTTPMiddleware(s.mutateLimiter)).HandleFunc("DELETE /jobs/{id}", s.handleDeleteJob)
		api.With(tollbooth.HTTPMiddleware(s.mutateLimiter)).HandleFunc("POST /jobs/refresh", s.handleRefresh)
	})

	return router
}
