// Package history archives every snapshot that replaced the cache.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
	"github.com/RobinCoderZhao/solana-news/pkg/storage"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at   INTEGER NOT NULL,
    date         TEXT NOT NULL,
    provider     TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    records      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id           BIGSERIAL PRIMARY KEY,
    created_at   BIGINT NOT NULL,
    date         TEXT NOT NULL,
    provider     TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    records      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
`

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("snapshot not found")

// Entry summarizes one archived snapshot.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Provider  string    `json:"provider"`
	Count     int       `json:"count"`
}

// Store persists snapshots in SQLite or PostgreSQL.
type Store struct {
	db   *storage.DB
	keep int
}

// New creates the schema if needed. keep bounds the number of rows retained;
// zero or less keeps everything.
func New(ctx context.Context, db *storage.DB, keep int) (*Store, error) {
	schema := sqliteSchema
	if db.DriverType() == storage.Postgres {
		schema = postgresSchema
	}
	if err := db.Migrate(ctx, schema); err != nil {
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db, keep: keep}, nil
}

// Append archives snap and prunes rows beyond the retention limit.
func (s *Store) Append(ctx context.Context, snap news.Snapshot) error {
	records, err := json.Marshal(snap.Records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO snapshots (created_at, date, provider, record_count, records)
			VALUES (?, ?, ?, ?, ?)
		`), snap.Timestamp.UnixMilli(), snap.Date, snap.Provider, len(snap.Records), string(records)); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if s.keep <= 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			DELETE FROM snapshots WHERE id NOT IN (
				SELECT id FROM (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?) AS recent
			)
		`), s.keep); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		return nil
	})
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, created_at, date, provider, record_count
		FROM snapshots ORDER BY id DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &createdAt, &e.Date, &e.Provider, &e.Count); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		e.Timestamp = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get loads one archived snapshot with its records.
func (s *Store) Get(ctx context.Context, id int64) (news.Snapshot, error) {
	var (
		snap      news.Snapshot
		createdAt int64
		records   string
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT created_at, date, provider, records FROM snapshots WHERE id = ?
	`), id).Scan(&createdAt, &snap.Date, &snap.Provider, &records)
	if errors.Is(err, sql.ErrNoRows) {
		return news.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return news.Snapshot{}, fmt.Errorf("query snapshot %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(records), &snap.Records); err != nil {
		return news.Snapshot{}, fmt.Errorf("decode snapshot %d: %w", id, err)
	}
	snap.Timestamp = time.UnixMilli(createdAt).UTC()
	return snap, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
