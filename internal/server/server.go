package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/config"
	"github.com/mrbrocoli/grocer/backend/internal/api"
	"github.com/mrbrocoli/grocer/backend/internal/middleware"
)

const defaultShutdownTimeout = 5 * time.Second

// Server represents the HTTP server
type Server struct {
	router          *gin.Engine
	http            *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// New builds the gin engine, installs the shared middleware and registers
// every API route.
func New(cfg *config.Config, deps api.Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.ErrorHandler(logger),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	if deps.Logger == nil {
		deps.Logger = logger
	}
	api.RegisterRoutes(router, deps)

	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = defaultShutdownTimeout
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger:          logger.Named("server"),
		shutdownTimeout: shutdown,
	}
}

// Router exposes the engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully. It returns
// early if the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
