package domain

import (
	"context"
	"time"
)

// Document is the metadata record created once per ingested file.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	Year      *int      `json:"year"`
	Dept      *string   `json:"dept"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded span of a document's extracted text, the unit of embedding and scoring.
type Chunk struct {
	ID    string   `json:"id"`
	DocID string   `json:"doc_id"`
	Text  string   `json:"text"`
	Year  *int     `json:"year"`
	Path  string   `json:"path"`
	Dept  *string  `json:"dept"`
	Tags  []string `json:"tags"`
}

// Chunker splits normalized text into overlapping passages.
type Chunker interface {
	Split(text string) []string
}

// Embedder converts free text into dense vectors. EmbedBatch returns one vector
// per input, in input order.
type Embedder interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor pulls plain text out of an uploaded file's raw bytes.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (string, error)
}

// BlobStore persists the original uploaded bytes as an opaque blob and returns
// the path it was written to.
type BlobStore interface {
	Save(ctx context.Context, name string, content []byte) (string, error)
}
