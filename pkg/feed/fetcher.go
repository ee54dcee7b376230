package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/mmcdole/gofeed"

	"github.com/finscope/finscope/pkg/domain"
)

// RawItem is a single parsed feed record before normalization. Optional
// fields stay as pointers or zero values; Normalize resolves defaults.
type RawItem struct {
	Title       string
	Link        string
	GUID        string
	Description string
	Content     string
	ImageURL    string
	Categories  []string
	Published   *time.Time
}

// HTTPFetcher fetches RSS/Atom feeds via HTTP with a per-source timeout and
// a short retry on transient failures
type HTTPFetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewHTTPFetcher creates a new feed fetcher
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		parser:  gofeed.NewParser(),
		timeout: timeout,
	}
}

// Fetch retrieves and parses the source's feed. A malformed document or a
// timed-out request is reported as an error; the caller isolates it.
func (f *HTTPFetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var parsed *gofeed.Feed
	retrier := repeater.NewBackoff(2, 250*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		var parseErr error
		parsed, parseErr = f.parser.ParseURLWithContext(source.URL, ctx)
		return parseErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.URL, err)
	}

	items := make([]RawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		raw := RawItem{
			Title:       item.Title,
			Link:        item.Link,
			GUID:        item.GUID,
			Description: item.Description,
			Content:     item.Content,
			Categories:  item.Categories,
		}

		if item.PublishedParsed != nil {
			raw.Published = item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			raw.Published = item.UpdatedParsed
		}

		if item.Image != nil {
			raw.ImageURL = item.Image.URL
		}

		items = append(items, raw)
	}

	return items, nil
}
