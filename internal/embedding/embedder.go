package embedding

import (
	"context"
	"sync"

	"govpal/internal/apperr"
	"govpal/internal/domain"
)

// Factory builds the concrete embedder on first use.
type Factory func() (domain.Embedder, error)

// Lazy is an explicitly constructed embedder handle whose underlying client is
// built exactly once, on the first request. Construction failures are sticky.
type Lazy struct {
	name    string
	factory Factory

	once  sync.Once
	inner domain.Embedder
	err   error
}

var _ domain.Embedder = (*Lazy)(nil)

// NewLazy returns a handle that calls factory once, on the first EmbedBatch.
func NewLazy(name string, factory Factory) *Lazy {
	return &Lazy{name: name, factory: factory}
}

func (l *Lazy) Name() string { return l.name }

// EmbedBatch returns one vector per text. Every failure is reported as an
// embedding error.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	inner, err := l.get()
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := inner.EmbedBatch(ctx, texts)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(err, apperr.KindEmbedding, "embedding request failed", apperr.Field("embedder", l.name))
		}
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, apperr.Errorf(apperr.KindEmbedding, "embedder %s returned %d vectors for %d texts", l.name, len(vectors), len(texts))
	}
	return vectors, nil
}

func (l *Lazy) get() (domain.Embedder, error) {
	l.once.Do(func() {
		l.inner, l.err = l.factory()
		if l.err != nil {
			l.err = apperr.Wrap(l.err, apperr.KindEmbedding, "initializing embedder", apperr.Field("embedder", l.name))
		}
	})
	return l.inner, l.err
}
