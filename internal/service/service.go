// Package service assembles the ingestion pipeline and search engine from
// configuration and exposes them to the HTTP server, the CLI and the TUI.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"govpal/internal/blobstore"
	"govpal/internal/chunker"
	"govpal/internal/config"
	"govpal/internal/domain"
	"govpal/internal/embedding"
	"govpal/internal/embedding/openai"
	"govpal/internal/extract"
	"govpal/internal/extract/docx"
	"govpal/internal/extract/pdf"
	"govpal/internal/ingest"
	"govpal/internal/search"
	"govpal/internal/vectorstore"
	"govpal/internal/vectorstore/disk"
	"govpal/internal/vectorstore/memory"
	"govpal/internal/vectorstore/sqlite"
)

// Service owns the store and the two components built on it.
type Service struct {
	pipeline *ingest.Pipeline
	engine   *search.Engine
	store    vectorstore.Store
	embedder domain.Embedder
	logger   *slog.Logger
}

// Components lets callers supply collaborators explicitly; nil fields are
// built from config.
type Components struct {
	Store     vectorstore.Store
	Embedder  domain.Embedder
	Extractor domain.Extractor
	Blobs     domain.BlobStore
}

// New builds every collaborator from cfg.
func New(cfg *config.AppConfig, logger *slog.Logger) (*Service, error) {
	return NewWithComponents(cfg, Components{}, logger)
}

// NewWithComponents is New with some collaborators supplied by the caller.
func NewWithComponents(cfg *config.AppConfig, c Components, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var err error
	ownsStore := false
	if c.Store == nil {
		if c.Store, err = OpenStore(cfg.Index, logger); err != nil {
			return nil, err
		}
		ownsStore = true
	}
	if c.Embedder == nil {
		c.Embedder = NewEmbedder(cfg.Embedder)
	}
	if c.Extractor == nil {
		c.Extractor = NewExtractor(cfg.Extract)
	}
	if c.Blobs == nil {
		if c.Blobs, err = blobstore.NewDir(cfg.Storage.Dir); err != nil {
			if ownsStore {
				c.Store.Close()
			}
			return nil, err
		}
	}

	ch := chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.OverlapRunes())
	pipeline := ingest.NewPipeline(c.Extractor, ch, c.Embedder, c.Store, c.Blobs, ingest.WithLogger(logger))
	engine := search.NewEngine(c.Store, c.Embedder, search.Options{
		TopK:         cfg.Search.TopK,
		Threshold:    cfg.Search.Threshold,
		DefaultLimit: cfg.Search.DefaultLimit,
	}, logger)

	return &Service{pipeline: pipeline, engine: engine, store: c.Store, embedder: c.Embedder, logger: logger}, nil
}

// OpenStore opens the configured index backend.
func OpenStore(cfg config.IndexConfig, logger *slog.Logger) (vectorstore.Store, error) {
	switch cfg.Backend {
	case config.BackendDisk, "":
		return disk.NewStorage(cfg.Dir, logger)
	case config.BackendMemory:
		return memory.NewStorage(), nil
	case config.BackendSQLite:
		return sqlite.NewStore(cfg.Dir, logger)
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

// NewEmbedder returns the OpenAI-compatible embedder, constructed on first use.
func NewEmbedder(cfg config.EmbedderConfig) domain.Embedder {
	return embedding.NewLazy("openai:"+cfg.Model, func() (domain.Embedder, error) {
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.BaseURL,
			APIKeyEnv:  cfg.APIKeyEnv,
			Model:      cfg.Model,
			Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
			MaxRetries: cfg.MaxRetries,
			BatchSize:  cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// NewExtractor routes PDFs to pdftotext and Word files to the DOCX reader.
func NewExtractor(cfg config.ExtractConfig) *extract.Router {
	return extract.NewRouter().
		Handle(pdf.New(cfg.PDFToText), "pdf").
		Handle(docx.New(), "docx", "doc")
}

func (s *Service) IngestBatch(ctx context.Context, files []ingest.File, opts ingest.Options) (*ingest.Summary, error) {
	return s.pipeline.IngestBatch(ctx, files, opts)
}

func (s *Service) Search(ctx context.Context, q search.Query) (*search.Response, error) {
	return s.engine.Search(ctx, q)
}

// IngestPaths reads local files and ingests them as one batch. Each argument
// may be a glob; arguments matching nothing are passed through so they show
// up as per-file failures.
func (s *Service) IngestPaths(ctx context.Context, paths []string, opts ingest.Options) (*ingest.Summary, error) {
	var files []ingest.File
	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", m, err)
			}
			files = append(files, ingest.File{Name: filepath.Base(m), Content: data})
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to ingest")
	}
	return s.pipeline.IngestBatch(ctx, files, opts)
}

// Stats reports the size of the current index.
func (s *Service) Stats(ctx context.Context) (docs, chunks, dim int, err error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return len(snap.Docs), snap.Len(), snap.Dimension(), nil
}

// EmbedderName identifies the configured embedding model.
func (s *Service) EmbedderName() string { return s.embedder.Name() }

func (s *Service) Close() error { return s.store.Close() }
