// Package refresher runs one refresh cycle: fetch through the provider
// chain, replace the cache on success, then archive and notify.
package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/cache"
	"github.com/RobinCoderZhao/solana-news/internal/news"
	"github.com/RobinCoderZhao/solana-news/internal/sources"
	"github.com/RobinCoderZhao/solana-news/pkg/differ"
	"github.com/RobinCoderZhao/solana-news/pkg/notify"
)

// Status is the outcome of a refresh cycle.
type Status string

const (
	StatusUpdated Status = "updated"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Fetcher produces the records for a refresh. *sources.Chain implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (sources.Result, error)
}

// Archiver stores replaced snapshots. *history.Store implements it.
type Archiver interface {
	Append(ctx context.Context, snap news.Snapshot) error
}

// Notifier announces newly cached records. *notify.Dispatcher implements it.
type Notifier interface {
	SendAll(ctx context.Context, msg notify.Message) error
}

// Recorder receives refresh outcomes. *metrics.Metrics implements it.
type Recorder interface {
	RefreshDone(outcome string, elapsed time.Duration, cached int, updatedAt time.Time)
}

// Outcome describes what a refresh did.
type Outcome struct {
	Status   Status
	Provider string
	Records  int
	Diff     differ.DiffResult
	Duration time.Duration
}

// Refresher owns the refresh cycle. It is safe for concurrent use.
type Refresher struct {
	fetcher       Fetcher
	store         *cache.Store
	archive       Archiver
	notifier      Notifier
	recorder      Recorder
	skipIfRunning bool
	running       atomic.Int32 // cycles in flight
	logger        *slog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithArchive appends every replaced snapshot to a.
func WithArchive(a Archiver) Option { return func(r *Refresher) { r.archive = a } }

// WithNotifier announces newly added records through n.
func WithNotifier(n Notifier) Option { return func(r *Refresher) { r.notifier = n } }

// WithRecorder reports outcomes to rec.
func WithRecorder(rec Recorder) Option { return func(r *Refresher) { r.recorder = rec } }

// SkipIfRunning makes a refresh that starts while another is in flight
// return StatusSkipped instead of running concurrently.
func SkipIfRunning(skip bool) Option { return func(r *Refresher) { r.skipIfRunning = skip } }

// New creates a Refresher.
func New(fetcher Fetcher, store *cache.Store, opts ...Option) *Refresher {
	r := &Refresher{
		fetcher: fetcher,
		store:   store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a refresh is in flight.
func (r *Refresher) Running() bool { return r.running.Load() > 0 }

// Refresh runs one cycle. The cache is only touched when the chain returns
// records and they are persisted. A failed cycle returns StatusFailed with
// the error and leaves the previous snapshot in place.
func (r *Refresher) Refresh(ctx context.Context) (Outcome, error) {
	if r.skipIfRunning {
		if !r.running.CompareAndSwap(0, 1) {
			r.logger.Info("refresh already in flight, skipping")
			r.record(Outcome{Status: StatusSkipped}, time.Time{})
			return Outcome{Status: StatusSkipped, Records: r.store.Len()}, nil
		}
	} else {
		r.running.Add(1)
	}
	defer r.running.Add(-1)

	start := time.Now()
	r.logger.Info("refreshing Solana news cache")

	prev := r.store.Read()
	res, err := r.fetcher.Fetch(ctx)
	if err != nil || len(res.Records) == 0 {
		out := Outcome{Status: StatusFailed, Records: len(prev.Records), Duration: time.Since(start)}
		r.logger.Warn("cache refresh failed, keeping old data", "error", err, "cached", len(prev.Records))
		r.record(out, time.Time{})
		if err == nil {
			err = sources.ErrNoResults
		}
		return out, fmt.Errorf("refresh: %w", err)
	}

	if _, err := r.store.Replace(res.Provider, res.Records); err != nil {
		out := Outcome{Status: StatusFailed, Provider: res.Provider, Records: len(prev.Records), Duration: time.Since(start)}
		r.logger.Error("failed to persist cache, keeping old data", "error", err)
		r.record(out, time.Time{})
		return out, fmt.Errorf("refresh: %w", err)
	}

	snap := r.store.Read()
	out := Outcome{
		Status:   StatusUpdated,
		Provider: res.Provider,
		Records:  len(snap.Records),
		Diff:     differ.Keys(keys(prev.Records), keys(snap.Records)),
		Duration: time.Since(start),
	}
	r.logger.Info("cache refreshed", "provider", out.Provider, "records", out.Records, "changes", out.Diff.Summary(), "duration", out.Duration)
	r.record(out, snap.Timestamp)

	if r.archive != nil {
		if err := r.archive.Append(ctx, snap); err != nil {
			r.logger.Warn("failed to archive snapshot", "error", err)
		}
	}
	if r.notifier != nil && out.Diff.Stats.Additions > 0 {
		if err := r.notifier.SendAll(ctx, newRecordsMessage(snap.Records, out.Diff.Added)); err != nil {
			r.logger.Warn("failed to send refresh notification", "error", err)
		}
	}
	return out, nil
}

// Run adapts Refresh to the scheduler's job signature. Failures are logged
// by Refresh and not returned, so one bad cycle never stops the schedule.
func (r *Refresher) Run(ctx context.Context) error {
	_, _ = r.Refresh(ctx)
	return nil
}

func (r *Refresher) record(out Outcome, updatedAt time.Time) {
	if r.recorder == nil {
		return
	}
	r.recorder.RefreshDone(string(out.Status), out.Duration, out.Records, updatedAt)
}

func keys(records []news.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Key()
	}
	return out
}

func newRecordsMessage(records []news.Record, added []string) notify.Message {
	isNew := make(map[string]bool, len(added))
	for _, k := range added {
		isNew[k] = true
	}
	var lines, links []string
	for _, rec := range records {
		if !isNew[rec.Key()] {
			continue
		}
		line := "- " + rec.Title
		if rec.TokenSymbol != "" {
			line += " (" + rec.TokenSymbol + ")"
		}
		if rec.EventType != "" {
			line += " [" + rec.EventType + "]"
		}
		lines = append(lines, line)
		if rec.SourceURL != "" {
			links = append(links, rec.SourceURL)
		}
	}
	title := fmt.Sprintf("%d new Solana updates", len(lines))
	if len(lines) == 1 {
		title = "1 new Solana update"
	}
	return notify.Message{Title: title, Body: strings.Join(lines, "\n"), Links: links}
}
