// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/api"
	"github.com/varroawatch/hub/internal/config"
	"github.com/varroawatch/hub/internal/hubservice"
	"github.com/varroawatch/hub/internal/sweeper"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	deps       *Dependencies
	srv        *http.Server
	hubservice *hubservice.HubService
	sweeper    *sweeper.Sweeper
}

// New creates a new server instance
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := deps.HubService()
	if err != nil {
		deps.Close()
		return nil, err
	}

	s := &Server{
		config:     cfg,
		deps:       deps,
		hubservice: svc,
	}
	if cfg.Sweeper.Enabled {
		s.sweeper = deps.Sweeper()
	}

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) handler() http.Handler {
	router := api.NewRouter(s.hubservice, api.Options{
		MaxBodyBytes:   s.config.Storage.MaxUploadBytes,
		Observer:       s.deps.Monitoring,
		MetricsPath:    s.deps.Monitoring.MetricsPath(),
		MetricsHandler: s.deps.Monitoring.Handler(),
		MediaDir:       s.deps.MediaDir,
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(router))
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	if s.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.sweeper.Run(ctx)
		}()
	} else {
		nuts.L.Warnf("[Server] Inactivity sweeper is disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	err := s.waitForShutdown(errCh)
	cancel()
	wg.Wait()
	s.deps.Close()
	return err
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown(errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	case <-quit:
	}

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	nuts.L.Errorf("[Server] Recovered from panic: %s", fmt.Sprint(v...))
}
