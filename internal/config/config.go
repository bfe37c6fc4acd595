package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gmdb/internal/constants"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	HistoryBackendSQLite = "sqlite"
	HistoryBackendFile   = "file"
)

type Config struct {
	ServerPort     string        `validate:"required|numeric"`
	LogLevel       string        `validate:"required|in:trace,debug,info,warn,error"`
	DatasetBaseURL string        `validate:"required|fullUrl"`
	ServersURL     string        `validate:"required|fullUrl"`
	DBPath         string        `validate:"required"`
	HistoryBackend string        `validate:"required|in:sqlite,file"`
	HistoryFile    string        `validate:"required"`
	FetchTimeout   time.Duration `validate:"required"`
	SearchCacheTTL time.Duration
	SearchCacheMB  int `validate:"min:0"`
	// oversize hit lists kept outside freecache
	SearchOverflow int `validate:"min:0"`
	GitHubOwner    string
	GitHubRepos    []string
	LanyardUserID  string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	fetchTimeout, err := getDuration("FETCH_TIMEOUT", constants.ExternalAPITimeout)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("SEARCH_CACHE_TTL", constants.SearchCacheTTL)
	if err != nil {
		return nil, err
	}
	cacheMB, err := strconv.Atoi(getEnv("SEARCH_CACHE_MB", "64"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_CACHE_MB: %w", err)
	}
	overflow, err := strconv.Atoi(getEnv("SEARCH_CACHE_OVERFLOW", strconv.Itoa(constants.SearchOverflowEntries)))
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_CACHE_OVERFLOW: %w", err)
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DatasetBaseURL: strings.TrimRight(getEnv("DATASET_BASE_URL", "https://raw.githubusercontent.com/Nan-Yin-s-Bedroom/tofgm-database/main"), "/"),
		ServersURL:     getEnv("SERVERS_URL", "https://raw.githubusercontent.com/Nan-Yin-s-Bedroom/tofgm-database/main/servers/servers.json"),
		DBPath:         getEnv("DB_PATH", "gmdb.db"),
		HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", HistoryBackendSQLite)),
		HistoryFile:    getEnv("HISTORY_FILE", "tofgm_database_history.json"),
		FetchTimeout:   fetchTimeout,
		SearchCacheTTL: cacheTTL,
		SearchCacheMB:  cacheMB,
		SearchOverflow: overflow,
		GitHubOwner:    getEnv("GITHUB_OWNER", "soevielofficial"),
		GitHubRepos:    splitList(getEnv("GITHUB_REPOS", "tof-vortex-extension,tof-assets,nte-assets,wuwa-assets")),
		LanyardUserID:  getEnv("LANYARD_USER_ID", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("dataset", cfg.DatasetBaseURL).
		Str("history_backend", cfg.HistoryBackend).
		Dur("fetch_timeout", cfg.FetchTimeout).
		Dur("search_cache_ttl", cfg.SearchCacheTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %w", v.Errors)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
