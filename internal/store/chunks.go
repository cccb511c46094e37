package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kensaku/internal/models"
)

// ChunkStore persists chunk payloads (content plus document metadata) in
// SQLite. It is the durable half of the index that the binary vectors file
// cannot carry; vectors and payloads are joined by chunk ID.
type ChunkStore struct {
	db *sql.DB
}

// NewChunkStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewChunkStore(dbPath string) (*ChunkStore, error) {
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
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &ChunkStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_key TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		source TEXT,
		size INTEGER,
		last_modified TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_key ON chunks(document_key);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll swaps the stored payload set for the given chunks in a single
// transaction, so readers never observe a partial set.
func (s *ChunkStore) ReplaceAll(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_key, content, chunk_index, source, size, last_modified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentKey, ch.Content, ch.ChunkIndex,
			ch.Metadata.Source, ch.Metadata.Size, ch.Metadata.LastModified, now,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAll returns every stored chunk payload.
func (s *ChunkStore) LoadAll(ctx context.Context) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_key, content, chunk_index, source, size, last_modified
		 FROM chunks ORDER BY document_key, chunk_index`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		var source sql.NullString
		var size sql.NullInt64
		var lastModified sql.NullTime
		if err := rows.Scan(&ch.ID, &ch.DocumentKey, &ch.Content, &ch.ChunkIndex, &source, &size, &lastModified); err != nil {
			return nil, err
		}
		ch.Metadata.Source = source.String
		ch.Metadata.Size = size.Int64
		if lastModified.Valid {
			ch.Metadata.LastModified = lastModified.Time
		}
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}
