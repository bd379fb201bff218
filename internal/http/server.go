// Package http serves the worker's status API: health, recent runs, the
// job table and manual run triggers.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"timeledger/internal/core"
	"timeledger/internal/log"
	"timeledger/internal/middleware/ratelimit"
	"timeledger/internal/middleware/security"
	"timeledger/internal/middleware/trace"
	"timeledger/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// JobStarter launches runs in the background.
type JobStarter interface {
	Jobs() []string
	Running(name string) bool
	Start(ctx context.Context, name string) (<-chan core.JobRun, error)
}

// RunLister reads finished runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, job string, limit int) ([]core.JobRun, error)
}

// Planner reports upcoming scheduled runs.
type Planner interface {
	Planned() []scheduler.Planned
}

type Config struct {
	Addr string
	Jobs JobStarter
	// Runs is nil when the run journal is disabled.
	Runs RunLister
	// Schedule is nil when nothing is scheduled.
	Schedule Planner
	// Limiter caps manual triggers per client; nil disables the cap.
	Limiter *ratelimit.Limiter
	// BaseContext parents triggered runs; defaults to context.Background.
	BaseContext context.Context
}

type Server struct {
	http.Server
	jobs     JobStarter
	runs     RunLister
	schedule Planner
	logger   *log.Logger
	baseCtx  context.Context

	inflight     sync.WaitGroup
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(cfg Config, logger *log.Logger) *Server {
	logger = logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		jobs:     cfg.Jobs,
		runs:     cfg.Runs,
		schedule: cfg.Schedule,
		logger:   logger,
		baseCtx:  cfg.BaseContext,
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /jobs", s.handleJobs)
	mux.HandleFunc("GET /runs", s.handleListRuns)

	var trigger http.Handler = http.HandlerFunc(s.handleTrigger)
	if cfg.Limiter != nil {
		trigger = cfg.Limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})(trigger)
	}
	mux.Handle("POST /runs/{job}", trigger)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, security.ClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is done, then shuts down and waits for triggered
// runs to finish.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and waits for triggered runs.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("triggered runs still active at shutdown")
		}
	})
	return shutdownErr
}
