package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finscope/finscope/pkg/domain"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("valid rss feed", func(t *testing.T) {
		rssContent := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
	<channel>
		<title>Money Weekly</title>
		<link>https://example.com</link>
		<description>Personal finance news</description>
		<item>
			<title>Index funds in 2026</title>
			<link>https://example.com/index-funds</link>
			<description>Where passive investing stands</description>
			<guid>index-funds</guid>
			<category>investing</category>
			<pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
		</item>
		<item>
			<title>Emergency fund basics</title>
			<link>https://example.com/emergency-fund</link>
			<description>How much cash to keep</description>
			<content:encoded><![CDATA[<p>Three to six months of expenses.</p>]]></content:encoded>
			<guid>emergency-fund</guid>
			<pubDate>Tue, 03 Jan 2006 15:04:05 -0700</pubDate>
		</item>
	</channel>
</rss>`

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(rssContent))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5 * time.Second)
		items, err := fetcher.Fetch(context.Background(), domain.FeedSource{ID: "money-weekly", URL: server.URL})
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "Index funds in 2026", items[0].Title)
		assert.Equal(t, "https://example.com/index-funds", items[0].Link)
		assert.Equal(t, "Where passive investing stands", items[0].Description)
		assert.Equal(t, []string{"investing"}, items[0].Categories)
		require.NotNil(t, items[0].Published)
		assert.Equal(t, 2006, items[0].Published.Year())

		assert.Equal(t, "<p>Three to six months of expenses.</p>", items[1].Content)
	})

	t.Run("atom feed with updated date", func(t *testing.T) {
		atomContent := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Rates Watch</title>
	<link href="https://example.com/"/>
	<updated>2006-01-02T15:04:05Z</updated>
	<entry>
		<title>Fed holds steady</title>
		<link href="https://example.com/fed"/>
		<id>fed</id>
		<updated>2006-01-02T15:04:05Z</updated>
		<summary>No change this quarter</summary>
	</entry>
</feed>`

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/atom+xml")
			w.Write([]byte(atomContent))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5 * time.Second)
		items, err := fetcher.Fetch(context.Background(), domain.FeedSource{ID: "rates", URL: server.URL})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Fed holds steady", items[0].Title)
		require.NotNil(t, items[0].Published, "updated date used when published is absent")
	})

	t.Run("malformed document", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("this is not a feed"))
		}))
		defer server.Close()

		fetcher := NewHTTPFetcher(5 * time.Second)
		_, err := fetcher.Fetch(context.Background(), domain.FeedSource{ID: "broken", URL: server.URL})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetch feed")
	})

	t.Run("unreachable host", func(t *testing.T) {
		fetcher := NewHTTPFetcher(time.Second)
		_, err := fetcher.Fetch(context.Background(), domain.FeedSource{ID: "gone", URL: "http://127.0.0.1:1/feed.xml"})
		require.Error(t, err)
	})
}
