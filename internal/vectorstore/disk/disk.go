// Package disk persists the vector index as three order-aligned artifacts in
// one directory: a binary float32 matrix, a chunk metadata list and a
// document metadata list.
package disk

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"govpal/internal/apperr"
	"govpal/internal/domain"
	"govpal/internal/vectorstore"
)

const (
	EmbeddingsFile = "embeddings.bin"
	ChunksFile     = "chunks.json"
	DocsFile       = "docs.json"
)

var vectorMagic = [8]byte{'G', 'P', 'V', 'E', 'C', '0', '0', '1'}

// Storage is a directory-backed Store. Appends are serialized by a single
// write lock; loads share a read lock and so never see a half-written index.
type Storage struct {
	dir    string
	logger *slog.Logger
	mu     sync.RWMutex
}

var _ vectorstore.Store = (*Storage)(nil)

// NewStorage creates the index directory if needed.
func NewStorage(dir string, logger *slog.Logger) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("index directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "creating index directory", apperr.Field("dir", dir))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{dir: dir, logger: logger.With("component", "vectorstore.disk")}, nil
}

// Dir returns the index directory.
func (s *Storage) Dir() string { return s.dir }

// Load never fails on missing or corrupt artifacts: each unreadable artifact
// degrades to empty on its own and a warning is logged.
func (s *Storage) Load(_ context.Context) (*vectorstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(), nil
}

func (s *Storage) Append(_ context.Context, vectors [][]float32, chunks []domain.Chunk, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, degraded := s.loadChecked()
	if degraded {
		return apperr.New(apperr.KindPersistence, "index artifacts are damaged, refusing to overwrite them",
			apperr.Field("dir", s.dir))
	}
	merged, err := vectorstore.Merge(base, vectors, chunks, docs)
	if err != nil {
		return err
	}
	if err := s.persist(merged); err != nil {
		return apperr.Wrap(err, apperr.KindPersistence, "persisting index", apperr.Field("dir", s.dir))
	}
	s.logger.Debug("index appended", "chunks", len(chunks), "docs", len(docs), "total_chunks", merged.Len())
	return nil
}

func (s *Storage) Close() error { return nil }

func (s *Storage) load() *vectorstore.Snapshot {
	snap, _ := s.loadChecked()
	return snap
}

// loadChecked reports whether any artifact was unreadable or had to be
// truncated to restore alignment.
func (s *Storage) loadChecked() (*vectorstore.Snapshot, bool) {
	snap := &vectorstore.Snapshot{}
	degraded := false

	vectors, err := readVectors(filepath.Join(s.dir, EmbeddingsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("vector artifact unreadable, treating as empty", "error", err)
		degraded = true
	}
	snap.Vectors = vectors

	if err := readJSON(filepath.Join(s.dir, ChunksFile), &snap.Chunks); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("chunk artifact unreadable, treating as empty", "error", err)
		snap.Chunks = nil
		degraded = true
	}
	if err := readJSON(filepath.Join(s.dir, DocsFile), &snap.Docs); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("document artifact unreadable, treating as empty", "error", err)
		snap.Docs = nil
		degraded = true
	}

	vn, cn := len(snap.Vectors), len(snap.Chunks)
	if snap.Align() {
		s.logger.Warn("vector and chunk artifacts disagree, truncating to common length",
			"vectors", vn, "chunks", cn, "kept", snap.Len())
		degraded = true
	}
	return snap, degraded
}

// persist writes every artifact to a temp file first and only then renames
// them into place, so a failed write leaves the previous index intact.
func (s *Storage) persist(snap *vectorstore.Snapshot) error {
	type artifact struct {
		name  string
		write func(w io.Writer) error
	}
	artifacts := []artifact{
		{DocsFile, func(w io.Writer) error { return writeJSON(w, nonNilDocs(snap.Docs)) }},
		{EmbeddingsFile, func(w io.Writer) error { return writeVectors(w, snap.Vectors) }},
		{ChunksFile, func(w io.Writer) error { return writeJSON(w, nonNilChunks(snap.Chunks)) }},
	}

	temps := make([]string, 0, len(artifacts))
	defer func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}()
	for _, a := range artifacts {
		tmp, err := writeTemp(s.dir, a.name, a.write)
		if err != nil {
			return fmt.Errorf("writing %s: %w", a.name, err)
		}
		temps = append(temps, tmp)
	}
	for i, a := range artifacts {
		if err := os.Rename(temps[i], filepath.Join(s.dir, a.name)); err != nil {
			return fmt.Errorf("replacing %s: %w", a.name, err)
		}
	}
	return nil
}

func writeTemp(dir, name string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func writeVectors(w io.Writer, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	header := make([]byte, 16)
	copy(header, vectorMagic[:])
	binary.LittleEndian.PutUint32(header[8:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(header[12:], uint32(dim))
	if _, err := w.Write(header); err != nil {
		return err
	}
	row := make([]byte, 4*dim)
	for _, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("ragged vector matrix: row width %d, want %d", len(v), dim)
		}
		for j, f := range v {
			binary.LittleEndian.PutUint32(row[4*j:], math.Float32bits(f))
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 16 || [8]byte(data[:8]) != vectorMagic {
		return nil, errors.New("bad vector artifact header")
	}
	rows := int(binary.LittleEndian.Uint32(data[8:]))
	dim := int(binary.LittleEndian.Uint32(data[12:]))
	body := data[16:]
	if len(body) != rows*dim*4 {
		return nil, fmt.Errorf("vector artifact size mismatch: %d bytes for %dx%d", len(body), rows, dim)
	}
	out := make([][]float32, rows)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			off := 4 * (i*dim + j)
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))
		}
		out[i] = v
	}
	return out, nil
}

func nonNilDocs(d []domain.Document) []domain.Document {
	if d == nil {
		return []domain.Document{}
	}
	return d
}

func nonNilChunks(c []domain.Chunk) []domain.Chunk {
	if c == nil {
		return []domain.Chunk{}
	}
	return c
}
