// Package graphstore keeps walked graph snapshots in SQLite, addressed by
// the hash of their canonical encoding. Each Put also records a walk entry
// so the same graph stored twice is kept once but listed twice.
package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/pywalk/registry"
)

// ErrSnapshotNotFound indicates no snapshot has the requested hash.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Record describes one stored walk.
type Record struct {
	WalkID    string
	Hash      string
	Root      registry.ID
	Nodes     int
	Label     string
	CreatedAt time.Time
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	hash  TEXT PRIMARY KEY,
	data  BLOB NOT NULL,
	root  INTEGER NOT NULL,
	nodes INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS walks (
	id         TEXT PRIMARY KEY,
	hash       TEXT NOT NULL REFERENCES snapshots(hash),
	label      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// Open opens or creates the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

// DefaultPath returns $PYWALK_STORE, or ~/.pywalk/graphs.db.
func DefaultPath() (string, error) {
	if p := os.Getenv("PYWALK_STORE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, ".pywalk", "graphs.db"), nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores snap under its content hash and records a new walk.
func (s *Store) Put(ctx context.Context, snap *registry.Snapshot, label string) (Record, error) {
	data, err := registry.MarshalSnapshot(snap)
	if err != nil {
		return Record{}, err
	}
	hash, err := snap.HashString()
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		WalkID:    uuid.New().String(),
		Hash:      hash,
		Root:      snap.Root,
		Nodes:     len(snap.Nodes),
		Label:     label,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO snapshots (hash, data, root, nodes) VALUES (?, ?, ?, ?)",
		rec.Hash, data, int64(rec.Root), rec.Nodes,
	); err != nil {
		return Record{}, fmt.Errorf("saving snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO walks (id, hash, label, created_at) VALUES (?, ?, ?, ?)",
		rec.WalkID, rec.Hash, rec.Label, rec.CreatedAt.Unix(),
	); err != nil {
		return Record{}, fmt.Errorf("saving walk: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("committing: %w", err)
	}
	return rec, nil
}

// Get loads the snapshot stored under hash.
func (s *Store) Get(ctx context.Context, hash string) (*registry.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshots WHERE hash = ?", hash).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, hash)
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return registry.UnmarshalSnapshot(data)
}

// List returns every recorded walk, oldest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.hash, s.root, s.nodes, w.label, w.created_at
		FROM walks w JOIN snapshots s ON s.hash = w.hash
		ORDER BY w.created_at, w.rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing walks: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var root, created int64
		if err := rows.Scan(&rec.WalkID, &rec.Hash, &root, &rec.Nodes, &rec.Label, &created); err != nil {
			return nil, fmt.Errorf("scanning walk: %w", err)
		}
		rec.Root = registry.ID(root)
		rec.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of distinct stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return n, nil
}
