package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscope/finscope/pkg/domain"
)

func TestNormalize(t *testing.T) {
	source := domain.FeedSource{ID: "markets", Name: "Market News", Category: "markets"}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("full record", func(t *testing.T) {
		published := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
		item := Normalize(RawItem{
			Title:       "Bond yields <b>spike</b>",
			Link:        "https://Example.com/bonds?utm_source=rss#section",
			Description: "<p>Yields moved sharply</p>",
			Content:     "<article>Long form text about bonds.</article>",
			Categories:  []string{"Bonds", "bonds", " Rates "},
			Published:   &published,
		}, source, now)

		assert.Equal(t, "Bond yields spike", item.Title)
		assert.Equal(t, "Yields moved sharply", item.Description)
		assert.Equal(t, "Long form text about bonds.", item.Body)
		assert.Equal(t, "https://example.com/bonds", item.CanonicalURL)
		assert.Equal(t, published, item.Published)
		assert.Equal(t, "markets", item.SourceID)
		assert.Equal(t, "markets", item.Category)
		assert.Equal(t, domain.SentimentNeutral, item.Sentiment)
		assert.Equal(t, []string{"bonds", "rates"}, item.Tags)
		assert.Equal(t, 1, item.ReadMinutes)
		assert.NotEmpty(t, item.ID)
	})

	t.Run("missing fields get defaults", func(t *testing.T) {
		item := Normalize(RawItem{Title: "Untitled note"}, source, now)

		assert.Equal(t, now, item.Published, "publish date falls back to now")
		assert.Empty(t, item.Description)
		assert.Equal(t, domain.SentimentNeutral, item.Sentiment)
		assert.Empty(t, item.CanonicalURL)
		assert.NotEmpty(t, item.ID, "id generated without canonical url")
		assert.Equal(t, 1, item.ReadMinutes)
		assert.Nil(t, item.Tags)
	})

	t.Run("stable id per canonical url", func(t *testing.T) {
		a := Normalize(RawItem{Link: "https://example.com/a?utm_campaign=x"}, source, now)
		b := Normalize(RawItem{Link: "https://EXAMPLE.com/a"}, source, now)
		assert.Equal(t, a.ID, b.ID, "same canonical url means same id")

		c := Normalize(RawItem{Link: "https://example.com/other"}, source, now)
		assert.NotEqual(t, a.ID, c.ID)
	})

	t.Run("read minutes scale with text length", func(t *testing.T) {
		longBody := strings.Repeat("word ", 1200)
		item := Normalize(RawItem{Content: longBody}, source, now)
		assert.Equal(t, 5, item.ReadMinutes) // 1200 words at 220 wpm
	})
}

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://Example.COM/Path", "https://example.com/Path"},
		{"strips fragment", "https://example.com/a#top", "https://example.com/a"},
		{"strips utm params", "https://example.com/a?utm_source=x&utm_medium=rss&id=7", "https://example.com/a?id=7"},
		{"strips click ids", "https://example.com/a?fbclid=abc&gclid=def", "https://example.com/a"},
		{"trims trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"empty link", "", ""},
		{"relative link", "/just/a/path", ""},
		{"garbage", "://nope", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalURL(tc.in))
		})
	}
}

func TestDedupeByURL(t *testing.T) {
	mk := func(url, sourceID string) domain.ContentItem {
		return domain.ContentItem{CanonicalURL: url, SourceID: sourceID}
	}

	t.Run("first occurrence wins across sources", func(t *testing.T) {
		items := []domain.ContentItem{
			mk("https://example.com/a", "one"),
			mk("https://example.com/b", "one"),
			mk("https://example.com/a", "two"),
		}
		out := DedupeByURL(items)
		require.Len(t, out, 2)
		assert.Equal(t, "one", out[0].SourceID)
	})

	t.Run("items without url always kept", func(t *testing.T) {
		items := []domain.ContentItem{mk("", "one"), mk("", "two")}
		assert.Len(t, DedupeByURL(items), 2)
	})

	t.Run("idempotent", func(t *testing.T) {
		items := []domain.ContentItem{
			mk("https://example.com/a", "one"),
			mk("https://example.com/a", "two"),
			mk("https://example.com/c", "three"),
		}
		once := DedupeByURL(items)
		twice := DedupeByURL(once)
		assert.Equal(t, once, twice)
	})
}
