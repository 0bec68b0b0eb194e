package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/internal/web"
)

const shutdownTimeout = 30 * time.Second

// Server HTTP server
type Server struct {
	config  *config.Config
	logger  logger.Logger
	web     *web.Service
	version string

	mu      sync.Mutex
	httpSrv *http.Server
	addr    string
	ready   chan struct{}
}

// New creates a new server instance around the API service.
func New(cfg *config.Config, log logger.Logger, svc *web.Service, version string) *Server {
	return &Server{
		config:  cfg,
		logger:  log,
		web:     svc,
		version: version,
		ready:   make(chan struct{}),
	}
}

// Handler builds the router: the API under its prefix plus /healthz.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.recoverMiddleware, s.accessLogMiddleware)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.web.RegisterRoutes(router)
	router.NotFoundHandler = s.accessLogMiddleware(http.NotFoundHandler())
	return router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Server.Addr(), err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("Starting HTTP server",
		"addr", s.Addr(),
		"api_path", s.config.Server.APIPath,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.web.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	err = group.Wait()
	s.logger.Info("Server exited")
	return err
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address, empty before Run binds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
