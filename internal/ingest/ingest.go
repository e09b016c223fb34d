// Package ingest orchestrates the one-shot ingestion session: fetch the
// three feeds, merge them into the region table, refresh the composite
// region, and flip readiness.
//
// Fetches run concurrently; merges are applied strictly sequentially on the
// calling goroutine (population → bounds → counts), because the table's
// merge operations are not safe for concurrent use. After Run returns the
// table is read-only and may be read from any goroutine.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outbreak-map-service/internal/domain"
	"github.com/couchcryptid/outbreak-map-service/internal/observability"
	"github.com/couchcryptid/outbreak-map-service/internal/store"
)

// PopulationSource supplies decoded census population rows.
type PopulationSource interface {
	FetchPopulation(ctx context.Context) ([]domain.PopulationRow, error)
}

// BoundarySource supplies decoded boundary features.
type BoundarySource interface {
	FetchBoundaries(ctx context.Context) ([]domain.BoundaryFeature, error)
}

// CaseSource supplies decoded cumulative case rows.
type CaseSource interface {
	FetchCases(ctx context.Context) ([]domain.CaseRow, error)
}

// Ingestor runs one ingestion session against a table.
type Ingestor struct {
	population PopulationSource
	boundary   BoundarySource
	cases      CaseSource
	table      *store.Table
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	retries    int
	ready      atomic.Bool
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithClock swaps the time source used for backoff sleeps; tests freeze it.
func WithClock(c clockwork.Clock) Option {
	return func(i *Ingestor) { i.clock = c }
}

// WithRetries enables up to n re-fetches per feed after the first failure.
// The default of 0 preserves the baseline behavior: one attempt per feed,
// and a failed case feed simply leaves its entries incomplete.
func WithRetries(n int) Option {
	return func(i *Ingestor) { i.retries = n }
}

// New creates an Ingestor over the given sources and table.
func New(pop PopulationSource, bnd BoundarySource, cs CaseSource, table *store.Table,
	logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Ingestor {
	i := &Ingestor{
		population: pop,
		boundary:   bnd,
		cases:      cs,
		table:      table,
		logger:     logger,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CheckReadiness returns nil once at least one region entry is complete.
func (i *Ingestor) CheckReadiness(_ context.Context) error {
	if !i.ready.Load() {
		return errors.New("no complete region entries yet")
	}
	return nil
}

// Run executes one ingestion session. Feeds that fail to fetch are reported
// in the joined error, but the feeds that did arrive are still merged so the
// table degrades to incomplete entries instead of staying empty.
func (i *Ingestor) Run(ctx context.Context) error {
	i.metrics.IngestRunning.Set(1)
	defer i.metrics.IngestRunning.Set(0)

	i.logger.Info("ingestion started", "retries", i.retries)

	var (
		wg        sync.WaitGroup
		popRows   []domain.PopulationRow
		features  []domain.BoundaryFeature
		caseRows  []domain.CaseRow
		popErr    error
		boundsErr error
		casesErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		popRows, popErr = fetchFeed(ctx, i, "population", i.population.FetchPopulation)
	}()
	go func() {
		defer wg.Done()
		features, boundsErr = fetchFeed(ctx, i, "bounds", i.boundary.FetchBoundaries)
	}()
	go func() {
		defer wg.Done()
		caseRows, casesErr = fetchFeed(ctx, i, "counts", i.cases.FetchCases)
	}()
	wg.Wait()

	// Merge passes run in a fixed order on this goroutine. Each pass is
	// order-independent; the fixed order just keeps logs predictable.
	if popErr == nil {
		i.mergePass("population", len(popRows), i.table.AddPopulation(popRows))
	}
	if boundsErr == nil {
		i.mergePass("bounds", len(features), i.table.AddBounds(features))
	}
	if casesErr == nil {
		i.mergePass("counts", len(caseRows), i.table.AddCounts(caseRows))
	}

	complete := i.table.CompleteCount()
	i.metrics.EntriesTotal.Set(float64(i.table.Len()))
	i.metrics.EntriesComplete.Set(float64(complete))
	if complete > 0 {
		i.ready.Store(true)
	}

	i.logger.Info("ingestion finished",
		"entries", i.table.Len(),
		"complete", complete,
		"min_date", i.table.MinDate(),
		"max_date", i.table.MaxDate(),
	)

	return errors.Join(popErr, boundsErr, casesErr)
}

// mergePass records metrics and logging for one completed merge.
func (i *Ingestor) mergePass(feed string, total, skipped int) {
	i.metrics.RowsMerged.WithLabelValues(feed).Add(float64(total - skipped))
	i.metrics.RowsSkipped.WithLabelValues(feed).Add(float64(skipped))
	if skipped > 0 {
		i.logger.Warn("skipped malformed records", "feed", feed, "skipped", skipped, "total", total)
	}
}

// fetchFeed downloads one feed with optional retry. Backoff starts at 500ms,
// doubles per attempt, and caps at 5s; short enough that a session never
// stalls long on a dead feed.
func fetchFeed[T any](ctx context.Context, i *Ingestor, feed string, fn func(context.Context) ([]T, error)) ([]T, error) {
	backoff := 500 * time.Millisecond
	const maxBackoff = 5 * time.Second

	var lastErr error
	for attempt := 0; attempt <= i.retries; attempt++ {
		if attempt > 0 {
			if !i.sleep(ctx, backoff) {
				break
			}
			backoff = min(backoff*2, maxBackoff)
		}

		start := i.clock.Now()
		rows, err := fn(ctx)
		if err == nil {
			i.metrics.FeedFetchDuration.WithLabelValues(feed).Observe(i.clock.Since(start).Seconds())
			return rows, nil
		}

		lastErr = err
		i.metrics.FeedFetchErrors.WithLabelValues(feed).Inc()
		i.logger.Error("feed fetch failed", "feed", feed, "attempt", attempt+1, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%s feed: %w", feed, lastErr)
}

// sleep waits for d or until the context is cancelled.
func (i *Ingestor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-i.clock.After(d):
		return true
	}
}
