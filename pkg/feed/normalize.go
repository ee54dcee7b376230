package feed

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/finscope/finscope/pkg/domain"
)

// readingSpeedWPM is the assumed reading speed for the estimated read time
const readingSpeedWPM = 220

// stripHTML reduces any markup to plain text
var stripHTML = bluemonday.StrictPolicy()

// Normalize converts a raw feed record into a ContentItem with explicit
// defaults for every missing field: sanitized plain-text description,
// publish time falling back to now, neutral sentiment, generated id.
func Normalize(raw RawItem, source domain.FeedSource, now time.Time) domain.ContentItem {
	canonical := CanonicalURL(raw.Link)

	item := domain.ContentItem{
		Title:        strings.TrimSpace(stripHTML.Sanitize(raw.Title)),
		Description:  strings.TrimSpace(stripHTML.Sanitize(raw.Description)),
		Body:         strings.TrimSpace(stripHTML.Sanitize(raw.Content)),
		CanonicalURL: canonical,
		SourceID:     source.ID,
		Category:     source.Category,
		ImageURL:     raw.ImageURL,
		Sentiment:    domain.SentimentNeutral,
		Tags:         normalizeTags(raw.Categories),
	}

	if raw.Published != nil {
		item.Published = raw.Published.UTC()
	} else {
		item.Published = now.UTC()
	}

	// derive a stable id from the canonical URL so the same article keeps
	// the same id across refresh cycles
	if canonical != "" {
		item.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(canonical)).String()
	} else {
		item.ID = uuid.NewString()
	}

	item.ReadMinutes = estimateReadMinutes(item.Body, item.Description)

	return item
}

// CanonicalURL normalizes a link for use as the deduplication identity:
// lowercased scheme and host, no fragment, tracking parameters removed.
// Returns "" for empty or unparseable links.
func CanonicalURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if strings.HasPrefix(param, "utm_") || param == "fbclid" || param == "gclid" {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}

// DedupeByURL removes duplicates across sources by canonical URL, first
// occurrence wins. Items without a canonical URL are always kept.
func DedupeByURL(items []domain.ContentItem) []domain.ContentItem {
	seen := make(map[string]struct{}, len(items))
	result := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if item.CanonicalURL != "" {
			if _, ok := seen[item.CanonicalURL]; ok {
				continue
			}
			seen[item.CanonicalURL] = struct{}{}
		}
		result = append(result, item)
	}
	return result
}

func normalizeTags(categories []string) []string {
	if len(categories) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(categories))
	tags := make([]string, 0, len(categories))
	for _, c := range categories {
		tag := strings.ToLower(strings.TrimSpace(c))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func estimateReadMinutes(body, description string) int {
	text := body
	if text == "" {
		text = description
	}
	words := len(strings.Fields(text))
	minutes := words / readingSpeedWPM
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
