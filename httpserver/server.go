package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/chat"
	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/sandbox"
)

const (
	readHeaderTimeout = 10 * time.Second
	maxBodySize       = 1 << 20 // 1 MB
)

// Server wraps the chi router and the execution engine.
type Server struct {
	router     *chi.Mux
	logger     *zap.Logger
	executor   sandbox.SandboxExecutor
	chat       *chat.Handler
	addr       string
	httpServer *http.Server
	listener   net.Listener
}

// New creates the ops server listening on server.metrics_port.
func New(cfg *config.Config, logger *zap.Logger, executor sandbox.SandboxExecutor) *Server {
	logger = logger.Named("http")
	srv := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		executor: executor,
		chat:     chat.NewHandler(logger, executor),
		addr:     fmt.Sprintf(":%d", cfg.Server.MetricsPort),
	}

	// Sandbox runs can take as long as the policy timeout plus a kill
	srv.httpServer = &http.Server{
		Handler:           srv.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.GetTimeout() + cfg.GetKillTimeout() + readHeaderTimeout,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	srv.routes()

	return srv
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/languages", s.handleListLanguages)
		r.Post("/execute", s.handleExecute)
		r.Post("/chat", s.handleChat)
	})
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.logger.Info("ops server listening", zap.String("addr", listener.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("ops server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
