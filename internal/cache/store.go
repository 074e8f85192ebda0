// Package cache holds the latest news snapshot in memory and mirrors it to a
// JSON file so it survives restarts.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
)

// fileFormat is the on-disk shape:
// {"timestamp": <epoch ms>, "data": {"date": "YYYY-MM-DD", "opportunities": [...]}}
type fileFormat struct {
	Timestamp int64    `json:"timestamp"`
	Data      fileData `json:"data"`
}

type fileData struct {
	Date          string        `json:"date"`
	Provider      string        `json:"provider,omitempty"`
	Opportunities []news.Record `json:"opportunities"`
}

// Store is the cache. Reads never wait on disk I/O; writers are serialized
// and swap the whole snapshot only after the file has been replaced.
type Store struct {
	path    string
	current atomic.Pointer[news.Snapshot]
	writeMu sync.Mutex
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an empty store mirrored to path. An empty path keeps the
// cache in memory only.
func New(path string) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	s.current.Store(&news.Snapshot{Records: []news.Record{}})
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted snapshot. A missing file leaves the cache empty
// and is not an error. An unreadable or malformed file also leaves the cache
// empty; the error is returned for the caller to log.
func (s *Store) Load() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	empty := &news.Snapshot{Records: []news.Record{}}
	if s.path == "" {
		s.current.Store(empty)
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no cache file yet, starting empty", "path", s.path)
		s.current.Store(empty)
		return nil
	}
	if err != nil {
		s.current.Store(empty)
		return fmt.Errorf("read cache file %s: %w", s.path, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		s.current.Store(empty)
		return fmt.Errorf("parse cache file %s: %w", s.path, err)
	}
	records := f.Data.Opportunities
	if records == nil {
		records = []news.Record{}
	}
	snap := &news.Snapshot{
		Timestamp: time.UnixMilli(f.Timestamp),
		Date:      f.Data.Date,
		Provider:  f.Data.Provider,
		Records:   records,
	}
	s.current.Store(snap)
	s.logger.Info("cache loaded", "path", s.path, "records", len(records), "date", snap.Date)
	return nil
}

// Read returns the current snapshot. The returned slice is a copy.
func (s *Store) Read() news.Snapshot {
	snap := *s.current.Load()
	snap.Records = append([]news.Record(nil), snap.Records...)
	if snap.Records == nil {
		snap.Records = []news.Record{}
	}
	return snap
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	return len(s.current.Load().Records)
}

// Replace swaps in records as the new snapshot and persists it. Empty input
// leaves the store untouched and reports false. If persisting fails the
// in-memory snapshot is also left untouched.
func (s *Store) Replace(provider string, records []news.Record) (bool, error) {
	if len(records) == 0 {
		return false, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := news.NewSnapshot(provider, append([]news.Record(nil), records...), s.now())
	if err := s.persist(snap); err != nil {
		return false, err
	}
	s.current.Store(&snap)
	return true, nil
}

func (s *Store) persist(snap news.Snapshot) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(fileFormat{
		Timestamp: snap.Timestamp.UnixMilli(),
		Data: fileData{
			Date:          snap.Date,
			Provider:      snap.Provider,
			Opportunities: snap.Records,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	// Write to a temp file in the same directory, then rename over the target.
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}
