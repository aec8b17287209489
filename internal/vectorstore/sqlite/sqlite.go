// Package sqlite persists a vector index snapshot as a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"compliance/internal/domain"
)

// FormatVersion is bumped whenever the schema changes incompatibly.
const FormatVersion = 1

// Manifest describes a persisted index.
type Manifest struct {
	Version   int
	Identity  domain.EmbeddingIdentity
	Chunks    int
	CreatedAt time.Time
}

const schema = `
CREATE TABLE manifest (
	version    INTEGER NOT NULL,
	provider   TEXT NOT NULL,
	model      TEXT NOT NULL,
	dimension  INTEGER NOT NULL,
	chunks     INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE chunks (
	position INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	source   TEXT NOT NULL,
	idx      INTEGER NOT NULL,
	start_at INTEGER NOT NULL,
	end_at   INTEGER NOT NULL,
	text     TEXT NOT NULL,
	vector   BLOB NOT NULL
);
`

// Save writes the snapshot to path atomically: rows go to a temporary file in
// the same directory which is renamed over path only after a successful commit.
func Save(ctx context.Context, path string, m Manifest, entries []domain.IndexedVector) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.db")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := sql.Open("sqlite", tmpPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := write(ctx, db, m, entries); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing index: %w", err)
	}
	return nil
}

func write(ctx context.Context, db *sql.DB, m Manifest, entries []domain.IndexedVector) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO manifest (version, provider, model, dimension, chunks, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Version, m.Identity.Provider, m.Identity.Model, m.Identity.Dimension, len(entries),
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (position, id, source, idx, start_at, end_at, text, vector) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.ID, e.Source, e.Index, e.Start, e.End, e.Text,
			float64SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("writing chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save. It returns domain.ErrIndexNotFound
// when path does not exist or carries no manifest.
func Load(ctx context.Context, path string) (Manifest, []domain.IndexedVector, error) {
	var m Manifest
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return m, nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return m, nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var tables int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('manifest', 'chunks')`).Scan(&tables)
	if err != nil {
		return m, nil, fmt.Errorf("reading schema: %w", err)
	}
	if tables != 2 {
		return m, nil, fmt.Errorf("%w: %s has no manifest", domain.ErrIndexNotFound, path)
	}

	var createdAt string
	err = db.QueryRowContext(ctx,
		`SELECT version, provider, model, dimension, chunks, created_at FROM manifest LIMIT 1`).
		Scan(&m.Version, &m.Identity.Provider, &m.Identity.Model, &m.Identity.Dimension, &m.Chunks, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, nil, fmt.Errorf("%w: %s has no manifest", domain.ErrIndexNotFound, path)
	}
	if err != nil {
		return m, nil, fmt.Errorf("reading manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return m, nil, fmt.Errorf("unsupported index format version %d", m.Version)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		m.CreatedAt = t
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, source, idx, start_at, end_at, text, vector FROM chunks ORDER BY position`)
	if err != nil {
		return m, nil, fmt.Errorf("reading chunks: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.IndexedVector, 0, m.Chunks)
	for rows.Next() {
		var (
			e    domain.IndexedVector
			blob []byte
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Index, &e.Start, &e.End, &e.Text, &blob); err != nil {
			return m, nil, fmt.Errorf("scanning chunk: %w", err)
		}
		e.Vector = bytesToFloat64Slice(blob)
		if len(e.Vector) != m.Identity.Dimension {
			return m, nil, fmt.Errorf("chunk %s: vector has %d dimensions, manifest says %d",
				e.ID, len(e.Vector), m.Identity.Dimension)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return m, nil, fmt.Errorf("reading chunks: %w", err)
	}
	if len(entries) != m.Chunks {
		return m, nil, fmt.Errorf("index truncated: %d of %d chunks", len(entries), m.Chunks)
	}
	return m, entries, nil
}

// float64SliceToBytes encodes a vector as little-endian IEEE 754 doubles.
func float64SliceToBytes(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func bytesToFloat64Slice(data []byte) []float64 {
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}
