// Package server exposes the engine over HTTP and schedules periodic runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jacklau/oppradar/internal/metrics"
	"github.com/jacklau/oppradar/internal/progress"
	"github.com/jacklau/oppradar/internal/store"
)

// OpportunityStore is the read and curation surface used by the handlers.
type OpportunityStore interface {
	Ping(ctx context.Context) error
	ListOpportunities(ctx context.Context, sort string) ([]store.Opportunity, error)
	GetCluster(ctx context.Context, id string) (*store.Cluster, error)
	ListClusterPosts(ctx context.Context, clusterID string) ([]store.AnalyzedPost, error)
	DeletePostFromCluster(ctx context.Context, clusterID, postID string) (store.DeleteResult, error)
}

// Server is the HTTP front of the engine.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      OpportunityStore
	runner     *Runner
	progress   *progress.Tracker
	log        *slog.Logger
}

// New creates a Server listening on addr.
func New(addr string, st OpportunityStore, runner *Runner, tracker *progress.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:   chi.NewRouter(),
		store:    st,
		runner:   runner,
		progress: tracker,
		log:      logger,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/", s.handleListOpportunities)
			r.Get("/{id}", s.handleGetOpportunity)
			r.Delete("/{id}/posts/{postId}", s.handleDeletePost)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)

		r.Route("/engine", func(r chi.Router) {
			r.Post("/run", s.handleRun)
			r.Post("/reanalyze", s.handleReanalyze(false))
			r.Post("/recluster", s.handleReanalyze(true))
			r.Get("/progress", s.handleProgress)
		})
	})
}

// requestLogger logs each request with slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return <-errCh
}
