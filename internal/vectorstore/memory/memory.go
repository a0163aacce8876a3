package memory

import (
	"context"
	"sync"

	"govpal/internal/domain"
	"govpal/internal/vectorstore"
)

// Storage is a process-local vector store. Nothing survives a restart.
type Storage struct {
	mu   sync.RWMutex
	snap *vectorstore.Snapshot
}

var _ vectorstore.Store = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{snap: &vectorstore.Snapshot{}} }

// Load returns a copy of the current snapshot headers. Records are immutable
// once appended, so slices are shared.
func (s *Storage) Load(_ context.Context) (*vectorstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &vectorstore.Snapshot{
		Vectors: s.snap.Vectors[:len(s.snap.Vectors):len(s.snap.Vectors)],
		Chunks:  s.snap.Chunks[:len(s.snap.Chunks):len(s.snap.Chunks)],
		Docs:    s.snap.Docs[:len(s.snap.Docs):len(s.snap.Docs)],
	}, nil
}

func (s *Storage) Append(_ context.Context, vectors [][]float32, chunks []domain.Chunk, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, err := vectorstore.Merge(s.snap, vectors, chunks, docs)
	if err != nil {
		return err
	}
	s.snap = merged
	return nil
}

func (s *Storage) Close() error { return nil }
