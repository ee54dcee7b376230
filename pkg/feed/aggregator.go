// Package feed implements the multi-source aggregation pipeline: concurrent
// fetch of configured sources, normalization into ContentItem, dedupe by
// canonical URL, recency sort and a size cap, with the result swapped in
// atomically so readers never see a half-merged list.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/finscope/finscope/pkg/domain"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/enricher.go -pkg mocks -skip-ensure -fmt goimports . Enricher

// ErrDegraded signals that aggregation produced no data: no sources are
// configured, or every configured source failed. Callers log it and keep
// serving whatever state they already have.
var ErrDegraded = errors.New("degraded mode: no feed data available")

// snapshotKey is the cache key for the persisted aggregated feed
const snapshotKey = "feed:snapshot"

// Fetcher retrieves and parses a single feed source
type Fetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]RawItem, error)
}

// Enricher fills in full article text for items whose feed entry had none
type Enricher interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Snapshots persists the aggregated feed between restarts, backed by the
// TTL cache. Both operations are best effort.
type Snapshots interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

// Config holds aggregator configuration
type Config struct {
	Sources    []domain.FeedSource
	MaxItems   int           // retained item cap, default 100
	MaxWorkers int           // concurrent source fetches, default 5
	TTL        time.Duration // freshness window, default 15m
}

// snapshot is the cached form of the aggregated state
type snapshot struct {
	Items     []domain.ContentItem `json:"items"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// Aggregator owns the process-wide aggregated feed state. Only Refresh
// writes the state; all reads get copies.
type Aggregator struct {
	fetcher   Fetcher
	enricher  Enricher  // optional, may be nil
	snapshots Snapshots // optional, may be nil
	sources   []domain.FeedSource

	maxItems   int
	maxWorkers int
	ttl        time.Duration

	mu          sync.RWMutex
	items       []domain.ContentItem
	lastFetched time.Time

	// collapses concurrent refreshes into a single fetch cycle
	flight singleflight.Group
}

// NewAggregator creates an aggregator. The enricher and snapshots are
// optional; pass nil to disable body enrichment or snapshot persistence.
func NewAggregator(fetcher Fetcher, enricher Enricher, snapshots Snapshots, cfg Config) *Aggregator {
	if cfg.MaxItems == 0 {
		cfg.MaxItems = 100
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Minute
	}

	return &Aggregator{
		fetcher:    fetcher,
		enricher:   enricher,
		snapshots:  snapshots,
		sources:    cfg.Sources,
		maxItems:   cfg.MaxItems,
		maxWorkers: cfg.MaxWorkers,
		ttl:        cfg.TTL,
	}
}

// WarmFromSnapshot restores the aggregated state from the cache so a restart
// does not start cold. No-op without a snapshot store or on a cache miss.
func (a *Aggregator) WarmFromSnapshot(ctx context.Context) {
	if a.snapshots == nil {
		return
	}
	var snap snapshot
	if !a.snapshots.Get(ctx, snapshotKey, &snap) {
		return
	}

	a.mu.Lock()
	a.items = snap.Items
	a.lastFetched = snap.FetchedAt
	a.mu.Unlock()
	lgr.Printf("[INFO] restored %d items from feed snapshot (fetched %s)", len(snap.Items), snap.FetchedAt.Format(time.RFC3339))
}

// Sources returns the configured feed sources
func (a *Aggregator) Sources() []domain.FeedSource {
	sources := make([]domain.FeedSource, len(a.sources))
	copy(sources, a.sources)
	return sources
}

// LastRefreshed returns when the state was last replaced, zero if never
func (a *Aggregator) LastRefreshed() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastFetched
}

// Refresh fetches all sources and atomically replaces the aggregated state.
// Concurrent calls share a single fetch cycle; a failed source contributes
// nothing but never aborts the refresh.
func (a *Aggregator) Refresh(ctx context.Context) error {
	_, err, _ := a.flight.Do("refresh", func() (interface{}, error) {
		return nil, a.doRefresh(ctx)
	})
	return err
}

func (a *Aggregator) doRefresh(ctx context.Context) error {
	if len(a.sources) == 0 {
		lgr.Printf("[WARN] no feed sources configured")
		return fmt.Errorf("%w: no sources configured", ErrDegraded)
	}

	started := time.Now()
	lgr.Printf("[INFO] refreshing %d sources", len(a.sources))

	// indexed by source so the merge keeps config order regardless of
	// which fetch finishes first; a failed source leaves its slot nil
	results := make([][]domain.ContentItem, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers)
	for i, source := range a.sources {
		g.Go(func() error {
			raw, err := a.fetcher.Fetch(gctx, source)
			if err != nil {
				// source failure is isolated, the refresh goes on
				lgr.Printf("[WARN] source %s failed: %v", source.ID, err)
				return nil
			}

			now := time.Now()
			items := make([]domain.ContentItem, 0, len(raw))
			for _, r := range raw {
				items = append(items, Normalize(r, source, now))
			}
			results[i] = items

			lgr.Printf("[DEBUG] fetched %d items from %s", len(items), source.ID)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors, failures are logged above

	var collected []domain.ContentItem
	succeeded := 0
	for _, items := range results {
		if items == nil {
			continue
		}
		succeeded++
		collected = append(collected, items...)
	}
	if succeeded == 0 {
		// keep whatever state we have rather than swapping in nothing
		lgr.Printf("[WARN] all %d sources failed, keeping previous state", len(a.sources))
		return fmt.Errorf("%w: all %d sources failed", ErrDegraded, len(a.sources))
	}

	merged := DedupeByURL(collected)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Published.After(merged[j].Published)
	})
	if len(merged) > a.maxItems {
		merged = merged[:a.maxItems]
	}

	a.enrich(ctx, merged)

	fetchedAt := time.Now()
	a.mu.Lock()
	a.items = merged
	a.lastFetched = fetchedAt
	a.mu.Unlock()

	if a.snapshots != nil {
		a.snapshots.Set(ctx, snapshotKey, snapshot{Items: merged, FetchedAt: fetchedAt}, a.ttl)
	}

	lgr.Printf("[INFO] refresh completed: %d items from %d sources in %v", len(merged), len(a.sources), time.Since(started).Round(time.Millisecond))
	return nil
}

// enrich extracts full text for items that came without a body
func (a *Aggregator) enrich(ctx context.Context, items []domain.ContentItem) {
	if a.enricher == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers)
	for i := range items {
		if items[i].Body != "" || items[i].CanonicalURL == "" {
			continue
		}
		g.Go(func() error {
			body, err := a.enricher.Extract(gctx, items[i].CanonicalURL)
			if err != nil {
				lgr.Printf("[DEBUG] extraction failed for %s: %v", items[i].CanonicalURL, err)
				return nil
			}
			items[i].Body = body
			items[i].ReadMinutes = estimateReadMinutes(body, items[i].Description)
			return nil
		})
	}
	_ = g.Wait()
}

// GetItems returns the filtered aggregated items. A fresh state is served
// as-is; a stale one is served immediately while a background refresh runs
// (stale-while-revalidate); an empty state forces a blocking first fetch.
func (a *Aggregator) GetItems(ctx context.Context, filter domain.ItemFilter) []domain.ContentItem {
	a.mu.RLock()
	lastFetched := a.lastFetched
	a.mu.RUnlock()

	switch {
	case lastFetched.IsZero():
		// never populated, the first read pays for the fetch
		if err := a.Refresh(ctx); err != nil && !errors.Is(err, ErrDegraded) {
			lgr.Printf("[WARN] initial refresh failed: %v", err)
		}
	case time.Since(lastFetched) > a.ttl:
		// serve stale, refresh in the background
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := a.Refresh(bgCtx); err != nil && !errors.Is(err, ErrDegraded) {
				lgr.Printf("[WARN] background refresh failed: %v", err)
			}
		}()
	}

	a.mu.RLock()
	items := make([]domain.ContentItem, len(a.items))
	copy(items, a.items)
	a.mu.RUnlock()

	return applyFilter(items, filter)
}

// applyFilter filters, sorts and truncates a copy of the item list
func applyFilter(items []domain.ContentItem, filter domain.ItemFilter) []domain.ContentItem {
	filtered := items[:0]
	for _, item := range items {
		if filter.Matches(item) {
			filtered = append(filtered, item)
		}
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = domain.SortByDate
	}
	order := filter.SortOrder
	if order == "" {
		order = domain.SortDesc
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		var less bool
		switch sortBy {
		case domain.SortByViews:
			less = filtered[i].Engagement.Views < filtered[j].Engagement.Views
		case domain.SortByEngagement:
			less = filtered[i].Engagement.Score() < filtered[j].Engagement.Score()
		default:
			less = filtered[i].Published.Before(filtered[j].Published)
		}
		if order == domain.SortDesc {
			return !less && !equalByField(filtered[i], filtered[j], sortBy)
		}
		return less
	})

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}
	return filtered
}

// equalByField keeps the descending sort stable for equal keys
func equalByField(a, b domain.ContentItem, field domain.SortField) bool {
	switch field {
	case domain.SortByViews:
		return a.Engagement.Views == b.Engagement.Views
	case domain.SortByEngagement:
		return a.Engagement.Score() == b.Engagement.Score()
	default:
		return a.Published.Equal(b.Published)
	}
}
