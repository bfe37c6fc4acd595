package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ServerPort:     "8080",
		LogLevel:       "info",
		DatasetBaseURL: "https://example.com/db",
		ServersURL:     "https://example.com/servers.json",
		DBPath:         "gmdb.db",
		HistoryBackend: HistoryBackendSQLite,
		HistoryFile:    "history.json",
		FetchTimeout:   time.Second,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidBackend(t *testing.T) {
	c := validConfig()
	c.HistoryBackend = "redis"
	assert.Error(t, c.Validate())
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.LogLevel = "verbose"
	assert.Error(t, c.Validate())
}

func TestValidate_BadURL(t *testing.T) {
	c := validConfig()
	c.DatasetBaseURL = "not a url"
	assert.Error(t, c.Validate())
}

func TestValidate_NonNumericPort(t *testing.T) {
	c := validConfig()
	c.ServerPort = "http"
	assert.Error(t, c.Validate())
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("HISTORY_BACKEND", "FILE")
	t.Setenv("SEARCH_CACHE_TTL", "30s")
	t.Setenv("GITHUB_REPOS", " a, ,b ")
	t.Setenv("DATASET_BASE_URL", "https://example.com/db/")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, HistoryBackendFile, cfg.HistoryBackend)
	assert.Equal(t, 30*time.Second, cfg.SearchCacheTTL)
	assert.Equal(t, []string{"a", "b"}, cfg.GitHubRepos)
	assert.Equal(t, "https://example.com/db", cfg.DatasetBaseURL)
	assert.Equal(t, 64, cfg.SearchCacheMB)
	assert.Equal(t, 4, cfg.SearchOverflow)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	_, err := Load(zerolog.Nop())
	assert.Error(t, err)
}
