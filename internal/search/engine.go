// Package search ranks indexed chunks against a query by cosine similarity and
// returns one result per matching document.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"

	"govpal/internal/apperr"
	"govpal/internal/domain"
	"govpal/internal/vectorstore"
)

const (
	DefaultTopK         = 50
	DefaultThreshold    = 0.45
	DefaultLimit        = 10
	contentPreviewRunes = 300
	unknownTitle        = "Unknown Document"
)

// Options tunes ranking.
type Options struct {
	// TopK is the working set of best chunks considered before filtering.
	TopK int
	// Threshold is the minimum cosine similarity a chunk needs to survive.
	Threshold float64
	// DefaultLimit applies when a query asks for no explicit limit.
	DefaultLimit int
}

// DefaultOptions returns the standard ranking parameters.
func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, Threshold: DefaultThreshold, DefaultLimit: DefaultLimit}
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	return o
}

// Query is a search request. Role is accepted for forward compatibility and
// does not affect ranking.
type Query struct {
	Text  string
	Dept  string
	Role  string
	Limit int
}

type Metadata struct {
	Year       *int     `json:"year"`
	Dept       *string  `json:"dept"`
	Tags       []string `json:"tags"`
	ChunkCount int      `json:"chunk_count"`
}

// Result is one document, represented by its best-scoring chunk.
type Result struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
	Path     string   `json:"path"`
}

// Aggregates are facet counts over every stored chunk, independent of the query.
type Aggregates struct {
	ByYear map[string]int `json:"byYear"`
	ByDept map[string]int `json:"byDept"`
}

type Response struct {
	Query      string     `json:"query"`
	Results    []Result   `json:"results"`
	Aggregates Aggregates `json:"aggregates"`
	Total      int        `json:"total"`
	Limit      int        `json:"limit"`
}

// Engine is a read-only view over a vector store.
type Engine struct {
	store    vectorstore.Store
	embedder domain.Embedder
	opts     Options
	logger   *slog.Logger
}

func NewEngine(store vectorstore.Store, embedder domain.Embedder, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "search"),
	}
}

// Search embeds the query and ranks it against a fresh snapshot of the store.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = e.opts.DefaultLimit
	}
	resp := &Response{
		Query:      q.Text,
		Results:    []Result{},
		Aggregates: Aggregates{ByYear: map[string]int{}, ByDept: map[string]int{}},
		Limit:      limit,
	}

	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return resp, nil
	}

	vectors, err := e.embedder.EmbedBatch(ctx, []string{q.Text})
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Wrap(err, apperr.KindEmbedding, "embedding query")
		}
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, apperr.Errorf(apperr.KindEmbedding, "expected 1 query vector, got %d", len(vectors))
	}
	qv := vectors[0]
	if dim := snap.Dimension(); len(qv) != dim {
		return nil, apperr.Errorf(apperr.KindEmbedding, "query vector has dimension %d, index has %d", len(qv), dim)
	}

	scored := rank(qv, snap.Vectors)
	if len(scored) > e.opts.TopK {
		scored = scored[:e.opts.TopK]
	}

	groups := e.group(scored, snap.Chunks, q.Dept)
	if len(groups) > limit {
		groups = groups[:limit]
	}

	docs := snap.DocsByID()
	for _, g := range groups {
		best := snap.Chunks[g.best.pos]
		title := unknownTitle
		if d, ok := docs[g.docID]; ok {
			title = d.Title
		}
		tags := best.Tags
		if tags == nil {
			tags = []string{}
		}
		resp.Results = append(resp.Results, Result{
			ID:      g.docID,
			Title:   title,
			Content: preview(best.Text),
			Score:   round3(g.best.score),
			Metadata: Metadata{
				Year:       best.Year,
				Dept:       best.Dept,
				Tags:       tags,
				ChunkCount: g.count,
			},
			Path: best.Path,
		})
	}
	resp.Total = len(resp.Results)
	resp.Aggregates = aggregate(snap.Chunks)

	e.logger.Debug("search complete", "query_len", len(q.Text), "dept", q.Dept,
		"candidates", len(scored), "results", resp.Total)
	return resp, nil
}

type scoredChunk struct {
	pos   int
	score float64
}

type docGroup struct {
	docID string
	best  scoredChunk
	count int
}

// rank scores every vector and sorts descending; ties keep index order.
func rank(q []float32, vectors [][]float32) []scoredChunk {
	qn := norm(q)
	out := make([]scoredChunk, len(vectors))
	for i, v := range vectors {
		out[i] = scoredChunk{pos: i, score: cosine(q, qn, v)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// group applies the threshold and department filter, then collapses chunks to
// one entry per document ordered by best score.
func (e *Engine) group(scored []scoredChunk, chunks []domain.Chunk, dept string) []*docGroup {
	var groups []*docGroup
	byDoc := make(map[string]*docGroup)
	for _, s := range scored {
		if s.score < e.opts.Threshold {
			continue
		}
		c := chunks[s.pos]
		if dept != "" && (c.Dept == nil || *c.Dept != dept) {
			continue
		}
		g, ok := byDoc[c.DocID]
		if !ok {
			g = &docGroup{docID: c.DocID, best: s}
			byDoc[c.DocID] = g
			groups = append(groups, g)
		} else if s.score > g.best.score {
			g.best = s
		}
		g.count++
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].best.score > groups[j].best.score })
	return groups
}

func aggregate(chunks []domain.Chunk) Aggregates {
	agg := Aggregates{ByYear: map[string]int{}, ByDept: map[string]int{}}
	for _, c := range chunks {
		if c.Year != nil && *c.Year != 0 {
			agg.ByYear[strconv.Itoa(*c.Year)]++
		}
		if c.Dept != nil && *c.Dept != "" {
			agg.ByDept[*c.Dept]++
		}
	}
	return agg
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 for zero-norm or mismatched vectors.
func cosine(q []float32, qn float64, v []float32) float64 {
	if len(v) != len(q) {
		return 0
	}
	vn := norm(v)
	if qn == 0 || vn == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return dot / (qn * vn)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= contentPreviewRunes {
		return text
	}
	return string(r[:contentPreviewRunes]) + "..."
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
