// Package server exposes ingestion and search over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"govpal/internal/ingest"
	"govpal/internal/search"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxUploadBytes caps the multipart body of one ingest request.
	MaxUploadBytes int64
}

// Ingester runs a batch of uploads through the ingestion pipeline.
type Ingester interface {
	IngestBatch(ctx context.Context, files []ingest.File, opts ingest.Options) (*ingest.Summary, error)
}

// Searcher answers search queries.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
}

type Services struct {
	Ingest Ingester
	Search Searcher
}

// Server wraps a chi router with a huma API for the JSON endpoints.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	svc    Services
	logger *slog.Logger
}

// New builds the router and registers every route.
func New(cfg Config, svc Services, logger *slog.Logger) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if svc.Ingest == nil || svc.Search == nil {
		return nil, fmt.Errorf("ingest and search services are required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 256 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("GovPal API", "0.1.0")
	humaConfig.Info.Description = "Policy document ingestion and semantic search"
	// plain JSON bodies, no $schema links
	humaConfig.CreateHooks = nil
	api := humachi.New(r, humaConfig)

	s := &Server{router: r, api: api, cfg: cfg, svc: svc, logger: logger}
	s.registerRoutes()
	r.Post("/ingest", s.handleIngest)
	return s, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})
}
