package vectorstore

import (
	"context"

	"govpal/internal/apperr"
	"govpal/internal/domain"
)

// Store is the durable, append-only index of chunk vectors and metadata.
// Vectors[i] always belongs to Chunks[i].
type Store interface {
	// Load returns the current snapshot, or an empty one when nothing is persisted.
	Load(ctx context.Context) (*Snapshot, error)
	// Append merges new records onto the persisted snapshot as one serialized write.
	Append(ctx context.Context, vectors [][]float32, chunks []domain.Chunk, docs []domain.Document) error
	Close() error
}

// Snapshot is the full in-memory materialization of a Store.
type Snapshot struct {
	Vectors [][]float32
	Chunks  []domain.Chunk
	Docs    []domain.Document
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Chunks)
}

// Dimension returns the vector width, or 0 for an empty snapshot.
func (s *Snapshot) Dimension() int {
	if s == nil || len(s.Vectors) == 0 {
		return 0
	}
	return len(s.Vectors[0])
}

// DocsByID indexes documents by id. Later records win on duplicate ids.
func (s *Snapshot) DocsByID() map[string]domain.Document {
	out := make(map[string]domain.Document, len(s.Docs))
	for _, d := range s.Docs {
		out[d.ID] = d
	}
	return out
}

// Merge validates the new records against base and returns the concatenated
// snapshot. Every chunk of the result, old or new, must resolve to a document.
// base is not modified.
func Merge(base *Snapshot, vectors [][]float32, chunks []domain.Chunk, docs []domain.Document) (*Snapshot, error) {
	if base == nil {
		base = &Snapshot{}
	}
	if len(vectors) != len(chunks) {
		return nil, apperr.New(apperr.KindPersistence, "vectors and chunks length mismatch",
			apperr.Field("vectors", len(vectors)), apperr.Field("chunks", len(chunks)))
	}

	dim := base.Dimension()
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, apperr.Errorf(apperr.KindPersistence, "empty vector at position %d", i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return nil, apperr.Errorf(apperr.KindPersistence, "vector dimension mismatch: got %d, want %d", len(v), dim)
		}
	}

	known := make(map[string]struct{}, len(base.Docs)+len(docs))
	for _, d := range base.Docs {
		known[d.ID] = struct{}{}
	}
	for _, d := range docs {
		known[d.ID] = struct{}{}
	}
	for _, set := range [][]domain.Chunk{base.Chunks, chunks} {
		for _, c := range set {
			if _, ok := known[c.DocID]; !ok {
				return nil, apperr.New(apperr.KindPersistence, "chunk references unknown document",
					apperr.Field("chunk_id", c.ID), apperr.Field("doc_id", c.DocID))
			}
		}
	}

	merged := &Snapshot{
		Vectors: make([][]float32, 0, len(base.Vectors)+len(vectors)),
		Chunks:  make([]domain.Chunk, 0, len(base.Chunks)+len(chunks)),
		Docs:    make([]domain.Document, 0, len(base.Docs)+len(docs)),
	}
	merged.Vectors = append(append(merged.Vectors, base.Vectors...), vectors...)
	merged.Chunks = append(append(merged.Chunks, base.Chunks...), chunks...)
	merged.Docs = append(append(merged.Docs, base.Docs...), docs...)
	return merged, nil
}

// Align truncates vectors and chunks to their common length so positional
// alignment holds. It reports whether anything was dropped.
func (s *Snapshot) Align() bool {
	n := min(len(s.Vectors), len(s.Chunks))
	if n == len(s.Vectors) && n == len(s.Chunks) {
		return false
	}
	s.Vectors = s.Vectors[:n]
	s.Chunks = s.Chunks[:n]
	return true
}
