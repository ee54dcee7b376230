package domain

import (
	"strings"
	"time"
)

// Sentiment is a coarse sentiment label attached to a content item
type Sentiment string

// sentiment labels, "neutral" is the default for anything unclassified
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Engagement holds per-item reader metrics
type Engagement struct {
	Views    int `json:"views"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Saves    int `json:"saves"`
}

// Score returns the composite engagement score used for sorting
func (e Engagement) Score() int {
	return e.Likes + e.Comments + e.Saves
}

// ContentItem is a normalized article from any configured source.
// Identity for deduplication is CanonicalURL when present, otherwise
// the generated ID.
type ContentItem struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Body         string     `json:"body,omitempty"`
	CanonicalURL string     `json:"canonical_url"`
	Published    time.Time  `json:"published"`
	SourceID     string     `json:"source_id"`
	Category     string     `json:"category"`
	ImageURL     string     `json:"image_url,omitempty"`
	ReadMinutes  int        `json:"read_minutes"`
	Sentiment    Sentiment  `json:"sentiment"`
	Tags         []string   `json:"tags,omitempty"`
	Engagement   Engagement `json:"engagement"`
}

// SortField selects the ordering key for item listings
type SortField string

// supported sort fields
const (
	SortByDate       SortField = "date"
	SortByViews      SortField = "views"
	SortByEngagement SortField = "engagement"
)

// SortOrder selects ascending or descending ordering
type SortOrder string

// supported sort orders
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ItemFilter represents filtering and sorting criteria for item listings.
// All filter fields are optional and combined with AND.
type ItemFilter struct {
	Query           string    // case-insensitive substring over title/description/body
	Category        string    // exact match
	SourceID        string    // exact match
	Sentiment       Sentiment // exact match
	PublishedAfter  time.Time // inclusive
	PublishedBefore time.Time // inclusive
	SortBy          SortField // default SortByDate
	SortOrder       SortOrder // default SortDesc
	Limit           int       // 0 means no limit
}

// Matches reports whether the item passes all set filter conditions
func (f ItemFilter) Matches(item ContentItem) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(item.Title), q) &&
			!strings.Contains(strings.ToLower(item.Description), q) &&
			!strings.Contains(strings.ToLower(item.Body), q) {
			return false
		}
	}
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.SourceID != "" && item.SourceID != f.SourceID {
		return false
	}
	if f.Sentiment != "" && item.Sentiment != f.Sentiment {
		return false
	}
	if !f.PublishedAfter.IsZero() && item.Published.Before(f.PublishedAfter) {
		return false
	}
	if !f.PublishedBefore.IsZero() && item.Published.After(f.PublishedBefore) {
		return false
	}
	return true
}
