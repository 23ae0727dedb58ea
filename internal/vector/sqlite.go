package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/kensho/internal/models"
)

// SQLiteStore implements Store on a single SQLite file. Similarity search
// scans candidate rows and scores them in process, which is fine for the
// catalog sizes this store is meant for (tens of thousands of documents).
type SQLiteStore struct {
	db        *sql.DB
	dimension int
	logger    *zap.Logger
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string, dimension int, logger *zap.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		embedding BLOB NOT NULL,
		content TEXT NOT NULL,
		source_type TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source_type ON documents(source_type);
	CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dimension: dimension, logger: logger}, nil
}

// Upsert inserts the document or replaces an existing one with the same ID.
// The original created_at is preserved on replace.
func (s *SQLiteStore) Upsert(ctx context.Context, doc *models.IndexedDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, embedding, content, source_type, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			content = excluded.content,
			source_type = excluded.source_type,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		doc.ID, encodeVector(doc.Embedding), doc.Content, string(doc.SourceType),
		string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

// UpsertBatch inserts or replaces multiple documents in a transaction.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, docs []*models.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, embedding, content, source_type, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			content = excluded.content,
			source_type = excluded.source_type,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document ID is required")
		}
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx,
			doc.ID, encodeVector(doc.Embedding), doc.Content, string(doc.SourceType),
			string(metadataJSON), doc.CreatedAt, doc.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search scans candidate rows and scores them by cosine similarity.
// The source_type filter key is pushed into SQL; remaining keys are
// checked against the decoded metadata.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, topK int, filter Filter, threshold float64) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	q := `SELECT id, embedding, content, source_type, metadata, created_at, updated_at FROM documents`
	var args []interface{}
	if st, ok := filter["source_type"]; ok {
		q += ` WHERE source_type = ?`
		args = append(args, fmt.Sprintf("%v", st))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if !metadataMatches(doc.Metadata, filter) {
			continue
		}
		score := CosineSimilarity(query, doc.Embedding)
		if score < threshold {
			continue
		}
		results = append(results, &SearchResult{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Get returns the document with the given ID, or (nil, nil) if absent.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.IndexedDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, embedding, content, source_type, metadata, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteByFilter removes all documents matching the filter.
func (s *SQLiteStore) DeleteByFilter(ctx context.Context, filter Filter) (int, error) {
	if len(filter) == 0 {
		return s.Clear(ctx)
	}

	// source_type alone can be handled in SQL.
	if len(filter) == 1 {
		if st, ok := filter["source_type"]; ok {
			result, err := s.db.ExecContext(ctx,
				`DELETE FROM documents WHERE source_type = ?`, fmt.Sprintf("%v", st))
			if err != nil {
				return 0, err
			}
			n, _ := result.RowsAffected()
			return int(n), nil
		}
	}

	q := `SELECT id, embedding, content, source_type, metadata, created_at, updated_at FROM documents`
	var args []interface{}
	if st, ok := filter["source_type"]; ok {
		q += ` WHERE source_type = ?`
		args = append(args, fmt.Sprintf("%v", st))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		if metadataMatches(doc.Metadata, filter) {
			ids = append(ids, doc.ID)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	deleted := 0
	for _, id := range ids {
		ok, err := s.Delete(ctx, id)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Stats returns store statistics including per-source-type counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		BySourceType: make(map[string]int),
		Dimension:    s.dimension,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_type, COUNT(*) FROM documents GROUP BY source_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		stats.BySourceType[st] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM documents`).Scan(&last); err == nil && last.Valid {
		stats.LastIndexed = last.Time
	}
	return stats, nil
}

// Clear removes all documents.
func (s *SQLiteStore) Clear(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.IndexedDocument, error) {
	var doc models.IndexedDocument
	var embedding []byte
	var sourceType string
	var metadataJSON string

	err := row.Scan(&doc.ID, &embedding, &doc.Content, &sourceType, &metadataJSON,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	doc.Embedding = decodeVector(embedding)
	doc.SourceType = sourceType
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

// metadataMatches reports whether metadata satisfies every filter key
// except the reserved source_type key. Values are compared by their
// string forms so numeric types decoded from JSON compare sanely.
func metadataMatches(metadata map[string]interface{}, filter Filter) bool {
	for key, want := range filter {
		if key == "source_type" {
			continue
		}
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
