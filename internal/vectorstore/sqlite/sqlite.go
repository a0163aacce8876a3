// Package sqlite keeps the vector index in a single SQLite database. Each
// Append runs in one transaction, so the index is never left half-written.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"govpal/internal/apperr"
	"govpal/internal/domain"
	"govpal/internal/vectorstore"
)

// DBFile is the database file name inside the index directory.
const DBFile = "index.db"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL,
	path       TEXT NOT NULL,
	year       INTEGER,
	dept       TEXT,
	tags       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	seq    INTEGER PRIMARY KEY AUTOINCREMENT,
	id     TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	text   TEXT NOT NULL,
	year   INTEGER,
	dept   TEXT,
	tags   TEXT NOT NULL,
	path   TEXT NOT NULL,
	vector BLOB NOT NULL
);
`

// Store is a SQLite-backed vectorstore.Store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

var _ vectorstore.Store = (*Store)(nil)

// NewStore opens (or creates) index.db inside dir.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "creating index directory", apperr.Field("dir", dir))
	}
	if logger == nil {
		logger = slog.Default()
	}
	dbPath := filepath.Join(dir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "opening database", apperr.Field("path", dbPath))
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.Wrap(err, apperr.KindPersistence, "creating schema", apperr.Field("path", dbPath))
	}
	return &Store{db: db, path: dbPath, logger: logger.With("component", "vectorstore.sqlite")}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Load reads the whole index. A table that cannot be read degrades to empty
// with a warning rather than failing the read.
func (s *Store) Load(ctx context.Context) (*vectorstore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx), nil
}

func (s *Store) Append(ctx context.Context, vectors [][]float32, chunks []domain.Chunk, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := vectorstore.Merge(s.load(ctx), vectors, chunks, docs); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, apperr.KindPersistence, "beginning transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, d := range docs {
		tags, _ := json.Marshal(nonNil(d.Tags))
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, title, path, year, dept, tags, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Title, d.Path, nullInt(d.Year), nullString(d.Dept), string(tags), d.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return apperr.Wrap(err, apperr.KindPersistence, "inserting document", apperr.Field("doc_id", d.ID))
		}
	}
	for i, c := range chunks {
		tags, _ := json.Marshal(nonNil(c.Tags))
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, doc_id, text, year, dept, tags, path, vector) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocID, c.Text, nullInt(c.Year), nullString(c.Dept), string(tags), c.Path, encodeVector(vectors[i]),
		); err != nil {
			return apperr.Wrap(err, apperr.KindPersistence, "inserting chunk", apperr.Field("chunk_id", c.ID))
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, apperr.KindPersistence, "committing append")
	}
	return nil
}

func (s *Store) load(ctx context.Context) *vectorstore.Snapshot {
	snap := &vectorstore.Snapshot{}

	if docs, err := s.loadDocs(ctx); err != nil {
		s.logger.Warn("documents unreadable, treating as empty", "error", err)
	} else {
		snap.Docs = docs
	}
	if vectors, chunks, err := s.loadChunks(ctx); err != nil {
		s.logger.Warn("chunks unreadable, treating as empty", "error", err)
	} else {
		snap.Vectors, snap.Chunks = vectors, chunks
	}
	return snap
}

func (s *Store) loadDocs(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, path, year, dept, tags, created_at FROM documents ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			d         domain.Document
			year      sql.NullInt64
			dept      sql.NullString
			tags      string
			createdAt string
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Path, &year, &dept, &tags, &createdAt); err != nil {
			return nil, err
		}
		d.Year, d.Dept = intPtr(year), stringPtr(dept)
		if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
			s.logger.Warn("bad tags on document", "doc_id", d.ID, "error", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			d.CreatedAt = t
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) loadChunks(ctx context.Context) ([][]float32, []domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc_id, text, year, dept, tags, path, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		vectors [][]float32
		chunks  []domain.Chunk
	)
	for rows.Next() {
		var (
			c    domain.Chunk
			year sql.NullInt64
			dept sql.NullString
			tags string
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.DocID, &c.Text, &year, &dept, &tags, &c.Path, &blob); err != nil {
			return nil, nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		c.Year, c.Dept = intPtr(year), stringPtr(dept)
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			s.logger.Warn("bad tags on chunk", "chunk_id", c.ID, "error", err)
		}
		vectors = append(vectors, vec)
		chunks = append(chunks, c)
	}
	return vectors, chunks, rows.Err()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
