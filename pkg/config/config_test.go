package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults", func(t *testing.T) {
		path := writeConfig(t, `
feeds:
  - id: markets
    name: Market News
    url: https://example.com/markets.xml
    category: markets
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
		assert.Equal(t, "sqlite", cfg.Cache.Backend)
		assert.Equal(t, 15*time.Minute, cfg.Cache.FeedTTL)
		assert.Equal(t, time.Hour, cfg.Cache.AnalysisTTL)
		assert.Equal(t, 30*time.Minute, cfg.Schedule.RefreshInterval)
		assert.Equal(t, 10*time.Second, cfg.Schedule.SourceTimeout)
		assert.Equal(t, 5, cfg.Schedule.MaxWorkers)
		assert.Equal(t, 100, cfg.Schedule.MaxItems)
		assert.Equal(t, "Finscope/1.0", cfg.Extraction.UserAgent)

		require.Len(t, cfg.Feeds, 1)
		assert.Equal(t, "markets", cfg.Feeds[0].ID)
	})

	t.Run("environment variables expanded", func(t *testing.T) {
		t.Setenv("TEST_FEED_URL", "https://env.example.com/feed.xml")
		path := writeConfig(t, `
feeds:
  - id: env-feed
    url: ${TEST_FEED_URL}
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com/feed.xml", cfg.Feeds[0].URL)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "feeds: [broken")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("duplicate feed id rejected", func(t *testing.T) {
		path := writeConfig(t, `
feeds:
  - id: dup
    url: https://a.example.com/feed.xml
  - id: dup
    url: https://b.example.com/feed.xml
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate feed id")
	})

	t.Run("feed without url rejected", func(t *testing.T) {
		path := writeConfig(t, `
feeds:
  - id: broken
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})

	t.Run("unknown cache backend rejected", func(t *testing.T) {
		path := writeConfig(t, `
cache:
  backend: memcached
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cache.backend")
	})

	t.Run("llm enabled requires model", func(t *testing.T) {
		path := writeConfig(t, `
llm:
  enabled: true
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.model is required")
	})
}

func TestConfig_GetSources(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - id: markets
    name: Market News
    url: https://example.com/markets.xml
    category: markets
  - id: crypto
    url: https://example.com/crypto.xml
    category: crypto
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	sources := cfg.GetSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Market News", sources[0].Name)
	assert.Equal(t, "crypto", sources[1].Name, "name falls back to id")
	assert.Equal(t, "crypto", sources[1].Category)
}

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - id: markets
    url: https://example.com/markets.xml
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, VerifyAgainstEmbeddedSchema(cfg))
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)
}
