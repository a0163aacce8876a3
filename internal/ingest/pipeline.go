// Package ingest turns uploaded files into indexed chunks: extract, chunk,
// embed, append. Each file succeeds or fails on its own; only a store write
// failure stops a batch.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"govpal/internal/apperr"
	"govpal/internal/blobstore"
	"govpal/internal/domain"
	"govpal/internal/extract"
	"govpal/internal/vectorstore"
)

// DefaultExtensions are the file types accepted for ingestion.
var DefaultExtensions = []string{"pdf", "docx", "doc"}

// Status is the outcome of one file.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// File is one uploaded file.
type File struct {
	Name    string
	Content []byte
}

// Options are the metadata applied to every file of a batch.
type Options struct {
	Dept *string
	Year *int
	Tags []string
}

// FileResult reports what happened to one file.
type FileResult struct {
	Filename      string  `json:"filename"`
	DocumentID    *string `json:"document_id"`
	ChunksCreated int     `json:"chunks_created"`
	Status        Status  `json:"status"`
	Message       string  `json:"message"`
	ErrorDetails  *string `json:"error_details"`

	// Kind is set for error and skipped results.
	Kind apperr.Kind `json:"-"`
}

// Summary aggregates a batch.
type Summary struct {
	FilesProcessed     int          `json:"files_processed"`
	FilesSuccessful    int          `json:"files_successful"`
	FilesFailed        int          `json:"files_failed"`
	TotalChunksCreated int          `json:"total_chunks_created"`
	Results            []FileResult `json:"results"`
	Message            string       `json:"message"`
}

// Pipeline is the sole writer into the vector store.
type Pipeline struct {
	extractor  domain.Extractor
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      vectorstore.Store
	blobs      domain.BlobStore
	logger     *slog.Logger
	inferYear  YearInferrer
	extensions map[string]struct{}
	now        func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithYearInferrer replaces the default year heuristic.
func WithYearInferrer(f YearInferrer) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.inferYear = f
		}
	}
}

// WithExtensions replaces the accepted file extensions.
func WithExtensions(exts ...string) Option {
	return func(p *Pipeline) {
		p.extensions = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			p.extensions[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
		}
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline wires the ingestion collaborators.
func NewPipeline(extractor domain.Extractor, chunker domain.Chunker, embedder domain.Embedder, store vectorstore.Store, blobs domain.BlobStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		blobs:     blobs,
		logger:    slog.Default(),
		inferYear: InferLatestYear,
		now:       time.Now,
	}
	WithExtensions(DefaultExtensions...)(p)
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "ingest")
	return p
}

// IngestBatch processes files in order. A non-nil error means the store could
// not be written; the returned summary covers the files handled up to and
// including the failing one, and earlier appends stay in place.
func (p *Pipeline) IngestBatch(ctx context.Context, files []File, opts Options) (*Summary, error) {
	summary := &Summary{Results: make([]FileResult, 0, len(files))}
	tags := normalizeTags(opts.Tags)

	for _, f := range files {
		res, err := p.IngestFile(ctx, f, Options{Dept: opts.Dept, Year: opts.Year, Tags: tags})
		summary.add(res)
		if err != nil {
			summary.FilesProcessed = len(files)
			summary.Message = summary.message()
			return summary, err
		}
	}
	summary.FilesProcessed = len(files)
	summary.Message = summary.message()
	return summary, nil
}

// IngestFile processes one file. Validation, extraction and embedding
// failures are reported in the result with a nil error; persistence failures
// are returned as the error.
func (p *Pipeline) IngestFile(ctx context.Context, f File, opts Options) (FileResult, error) {
	log := p.logger.With("filename", f.Name)

	if f.Name == "" {
		return failed("unknown", apperr.KindValidation, "File has no filename", "Cannot process file without filename"), nil
	}
	ext := extract.Ext(f.Name)
	if _, ok := p.extensions[ext]; !ok {
		log.Info("skipping unsupported file", "ext", ext)
		res := failed(f.Name, apperr.KindValidation, "Unsupported file type: "+ext, "Only PDF and DOCX files are supported")
		res.Status = StatusSkipped
		return res, nil
	}

	text, err := p.extractor.Extract(ctx, f.Name, f.Content)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		kind := apperr.KindOf(err)
		if kind == "" {
			kind = apperr.KindExtraction
		}
		return failed(f.Name, kind, "Error processing file: "+err.Error(), err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return failed(f.Name, apperr.KindExtraction, "No text found in file", "File appears to be empty or unreadable"), nil
	}

	docID := DocumentID(f.Name, f.Content)
	log = log.With("doc_id", docID)

	year := opts.Year
	if year == nil {
		year = p.inferYear(text)
	}

	path, err := p.blobs.Save(ctx, blobstore.BlobName(docID, f.Name), f.Content)
	if err != nil {
		log.Error("saving original failed", "error", err)
		return failed(f.Name, apperr.KindPersistence, "Error processing file: "+err.Error(), err.Error()),
			apperr.Wrap(err, apperr.KindPersistence, "saving original file", apperr.Field("filename", f.Name))
	}

	passages := p.chunker.Split(text)
	vectors, err := p.embedder.EmbedBatch(ctx, passages)
	if err != nil {
		log.Warn("embedding failed", "error", err, "chunks", len(passages))
		return failed(f.Name, apperr.KindEmbedding, "Error processing file: "+err.Error(), err.Error()), nil
	}

	chunks := make([]domain.Chunk, len(passages))
	for i, passage := range passages {
		chunks[i] = domain.Chunk{
			ID:    fmt.Sprintf("%s_chunk_%d", docID, i),
			DocID: docID,
			Text:  passage,
			Year:  year,
			Path:  path,
			Dept:  opts.Dept,
			Tags:  opts.Tags,
		}
	}
	doc := domain.Document{
		ID:        docID,
		Title:     f.Name,
		Path:      path,
		Year:      year,
		Dept:      opts.Dept,
		Tags:      opts.Tags,
		CreatedAt: p.now().UTC(),
	}

	if err := p.store.Append(ctx, vectors, chunks, []domain.Document{doc}); err != nil {
		log.Error("index append failed", "error", err)
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(err, apperr.KindPersistence, "appending to index")
		}
		return failed(f.Name, apperr.KindPersistence, "Error processing file: "+err.Error(), err.Error()), err
	}

	log.Info("file ingested", "chunks", len(chunks))
	return FileResult{
		Filename:      f.Name,
		DocumentID:    &docID,
		ChunksCreated: len(chunks),
		Status:        StatusSuccess,
		Message:       "File processed successfully",
	}, nil
}

// DocumentID derives a stable id from the filename and a SHA-256 fingerprint
// of the content. Identical uploads under the same name get the same id.
func DocumentID(filename string, content []byte) string {
	fp := sha256.Sum256(content)
	sum := sha256.Sum256([]byte(filename + ":" + hex.EncodeToString(fp[:])))
	return hex.EncodeToString(sum[:])[:12]
}

// ParseTags splits a comma-separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return normalizeTags(strings.Split(raw, ","))
}

// normalizeTags trims tags and drops blanks and repeats, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func failed(filename string, kind apperr.Kind, msg, details string) FileResult {
	return FileResult{
		Filename:     filename,
		Status:       StatusError,
		Message:      msg,
		ErrorDetails: &details,
		Kind:         kind,
	}
}

func (s *Summary) add(r FileResult) {
	s.Results = append(s.Results, r)
	if r.Status == StatusSuccess {
		s.FilesSuccessful++
		s.TotalChunksCreated += r.ChunksCreated
		return
	}
	s.FilesFailed++
}

func (s *Summary) message() string {
	switch {
	case s.FilesSuccessful == s.FilesProcessed:
		return fmt.Sprintf("All %d files processed successfully", s.FilesProcessed)
	case s.FilesSuccessful > 0:
		return fmt.Sprintf("%d of %d files processed successfully", s.FilesSuccessful, s.FilesProcessed)
	default:
		return fmt.Sprintf("Failed to process any of the %d files", s.FilesProcessed)
	}
}
