package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOUNDARY_FILE", "testdata/counties.geojson")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Population.URL, "census.gov")
	assert.Contains(t, cfg.Cases.URL, "us-counties.csv")
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 0, cfg.FetchRetries)
	assert.True(t, cfg.CompositeSumCounts)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POPULATION_URL", "https://mirror.example.com/pop.csv")
	t.Setenv("BOUNDARY_URL", "https://mirror.example.com/counties.geojson")
	t.Setenv("CASES_URL", "https://mirror.example.com/cases.csv")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("FETCH_TIMEOUT", "30s")
	t.Setenv("FETCH_RETRIES", "3")
	t.Setenv("COMPOSITE_SUM_COUNTS", "false")
	t.Setenv("CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com/pop.csv", cfg.Population.URL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.False(t, cfg.CompositeSumCounts)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
}

func TestLoad_FileSuppressesDefaultURL(t *testing.T) {
	t.Setenv("POPULATION_FILE", "testdata/pop.csv")
	t.Setenv("CASES_FILE", "testdata/cases.csv")
	t.Setenv("BOUNDARY_FILE", "testdata/counties.geojson")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Population.URL)
	assert.Equal(t, "testdata/pop.csv", cfg.Population.File)
	assert.Empty(t, cfg.Cases.URL)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("boundary feed is required", func(t *testing.T) {
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BOUNDARY_URL or BOUNDARY_FILE")
	})

	t.Run("url and file are mutually exclusive", func(t *testing.T) {
		t.Setenv("BOUNDARY_URL", "https://example.com/counties.geojson")
		t.Setenv("BOUNDARY_FILE", "testdata/counties.geojson")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("BOUNDARY_FILE", "testdata/counties.geojson")
		t.Setenv("FETCH_TIMEOUT", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
	})

	t.Run("negative retries", func(t *testing.T) {
		t.Setenv("BOUNDARY_FILE", "testdata/counties.geojson")
		t.Setenv("FETCH_RETRIES", "-1")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FETCH_RETRIES")
	})
}
