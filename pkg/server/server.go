// Package server exposes the workflow engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/browserflow/pkg/browser"
	"github.com/entrhq/browserflow/pkg/logging"
	"github.com/entrhq/browserflow/pkg/workflow"
)

const shutdownTimeout = 5 * time.Second

// Sessions is the session manager surface the server needs.
// *browser.SessionManager implements it.
type Sessions interface {
	workflow.Sessions
	Status() browser.Status
	CloseAll() error
	CloseIdle(idle time.Duration) (bool, error)
}

// Config configures the HTTP server.
type Config struct {
	Address string

	// RequestTimeout bounds every request, including the workflow it runs
	RequestTimeout time.Duration

	MaxBodyBytes int64

	// IdleTimeout closes the browser after this long without use; zero
	// disables the janitor
	IdleTimeout time.Duration

	// SearchURL is the results page /search navigates to, with %s for the
	// escaped query. Empty uses DefaultSearchURL.
	SearchURL string
}

// Server serves workflow and single-action requests against one session.
type Server struct {
	cfg          Config
	sessions     Sessions
	orchestrator *workflow.Orchestrator
	logger       *logging.Logger
	router       chi.Router
}

// New creates a server. A nil interpreter gets the default configuration.
func New(cfg Config, sessions Sessions, interpreter *workflow.Interpreter, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard("server")
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	s := &Server{
		cfg:          cfg,
		sessions:     sessions,
		orchestrator: workflow.NewOrchestrator(sessions, interpreter, logger.With("workflow")),
		logger:       logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(s.recoverMiddleware)
	router.Use(s.logMiddleware)

	router.Get("/health", s.handleHealth)
	router.Get("/status", s.handleStatus)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(s.limitMiddleware)
		r.Post("/workflow", s.handleWorkflow)
		r.Post("/navigate", s.handleAction(workflow.KindNavigate))
		r.Post("/extract", s.handleAction(workflow.KindExtract))
		r.Post("/click", s.handleAction(workflow.KindClick))
		r.Post("/type", s.handleAction(workflow.KindType))
		r.Post("/execute", s.handleAction(workflow.KindEvaluate))
		r.Post("/screenshot", s.handleAction(workflow.KindScreenshot))
		r.Post("/search", s.handleSearch)
		r.Post("/close", s.handleClose)
	})
	return router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts the listener down. The
// session itself is left to the caller.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infof("Serving on %s", s.cfg.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if s.cfg.IdleTimeout > 0 {
		g.Go(func() error {
			s.janitor(ctx)
			return nil
		})
	}
	return g.Wait()
}

// janitor closes the browser once it has been idle for IdleTimeout.
func (s *Server) janitor(ctx context.Context) {
	interval := s.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.closeIdle()
		}
	}
}

func (s *Server) closeIdle() {
	closed, err := s.sessions.CloseIdle(s.cfg.IdleTimeout)
	if err != nil {
		s.logger.Warnf("Failed to close idle browser: %v", err)
		return
	}
	if closed {
		s.logger.Infof("Closed browser after %v idle", s.cfg.IdleTimeout)
	}
}
