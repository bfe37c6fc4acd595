package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gmdb/internal/api"
	"gmdb/internal/config"
	"gmdb/internal/domain"
	"gmdb/internal/metrics"
	"gmdb/internal/search"
	"gmdb/internal/service"
	"gmdb/internal/tracker"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	down  bool
	calls atomic.Int32
}

var stubShards = map[domain.Region][]domain.Account{
	domain.RegionEurope: {
		{RoleID: 1, Name: "Astra", CrewName: "Nova", Gender: domain.GenderFemale, Registered: "2023-02-01"},
		{RoleID: 2, Name: "Brick", CrewName: "Nova", Gender: domain.GenderMale, Registered: "2024-08-09"},
		{RoleID: 3, Name: "Cinder", Gender: domain.GenderMale, Registered: "2022-05-05"},
	},
	domain.RegionAsiaPacific: {
		{RoleID: 4, Name: "astro", Gender: domain.GenderFemale, Registered: "2023-11-11"},
	},
}

func (f *stubFetcher) FetchRegion(_ context.Context, region domain.Region) (domain.RegionShard, error) {
	f.calls.Add(1)
	if f.down {
		return domain.RegionShard{}, &api.FetchFailure{URL: string(region), StatusCode: http.StatusServiceUnavailable}
	}
	return domain.RegionShard{Region: region, Accounts: stubShards[region]}, nil
}

func (f *stubFetcher) FetchIndex(context.Context) (*domain.IndexManifest, error) {
	if f.down {
		return nil, &api.FetchFailure{URL: "index", StatusCode: http.StatusServiceUnavailable}
	}
	return &domain.IndexManifest{LastUpdate: 1700000000, TotalAccounts: 4}, nil
}

func (f *stubFetcher) FetchServers(context.Context) (*domain.ServerManifest, error) {
	return &domain.ServerManifest{OS: map[string]domain.ServerLocation{}}, nil
}

type stubRepos struct{}

func (stubRepos) RepoData(_ context.Context, owner, repo string) (domain.RepoData, error) {
	return domain.RepoData{Name: repo}, nil
}

type stubPresence struct{}

func (stubPresence) Presence(_ context.Context, userID string) (*domain.Presence, error) {
	return &domain.Presence{UserID: userID, Status: domain.StatusIdle}, nil
}

func newTestServer(t *testing.T, f *stubFetcher) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	m := metrics.New()

	store := tracker.NewFileStore(filepath.Join(t.TempDir(), "history.json"), logger)
	dataset := service.NewDatasetService(f, tracker.New(store, logger), nil, m, logger)

	cache, err := search.NewResultCache(4, time.Minute, 2)
	require.NoError(t, err)
	searchSvc := service.NewSearchService(dataset, cache, m, logger)

	cfg := &config.Config{GitHubOwner: "o", GitHubRepos: []string{"r1", "r2"}}
	profile := service.NewProfileService(cfg, stubRepos{}, stubPresence{}, logger)

	s := New(dataset, searchSvc, profile, m, logger)
	s.debounce = 200 * time.Millisecond

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var health map[string]string
	resp := getJSON(t, srv.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegionEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var listing service.RegionListing
	resp := getJSON(t, srv.URL+"/api/regions/europe/accounts?year=2023&year=2024&sort=asc", &listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, listing.Total)
	require.Len(t, listing.Accounts, 2)
	assert.Equal(t, "Astra", listing.Accounts[0].Name)
	assert.Equal(t, "Brick", listing.Accounts[1].Name)

	resp = getJSON(t, srv.URL+"/api/regions/Korea/accounts", &listing)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, listing.Accounts)
}

func TestRegionEndpoint_DateRangeAndGender(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var listing service.RegionListing
	resp := getJSON(t, srv.URL+"/api/regions/europe/accounts?start=2023-01-01&gender=male", &listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listing.Accounts, 1)
	assert.Equal(t, "Brick", listing.Accounts[0].Name)
}

func TestRegionEndpoint_Errors(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var body errorResponse
	resp := getJSON(t, srv.URL+"/api/regions/mars/accounts", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/regions/europe/accounts?start=yesterday", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body.Error, "start")

	resp = getJSON(t, srv.URL+"/api/regions/europe/accounts?sort=sideways", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/regions/europe/accounts?gender=2", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFetchFailureShowsGenericMessage(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{down: true})

	for _, path := range []string{"/api/index", "/api/regions/europe/accounts", "/api/statistics"} {
		var body errorResponse
		resp := getJSON(t, srv.URL+path, &body)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode, path)
		assert.Equal(t, "failed to load data, check your connection", body.Error, path)
		assert.NotEmpty(t, body.RequestID, path)
	}
}

func TestSearchWithAllRegionsDownIsEmpty(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{down: true})

	var full service.SearchResult
	resp := getJSON(t, srv.URL+"/api/search?q=a", &full)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, full.Hits)
	assert.Zero(t, full.Matched)
}

func TestStatisticsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var stats domain.Statistics
	resp := getJSON(t, srv.URL+"/api/statistics", &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, stats.FetchedAccounts)
	assert.Equal(t, domain.GenderCounts{Male: 2, Female: 2}, stats.Gender)
	assert.Equal(t, "Nova", stats.Crews[domain.RegionEurope].LargestCrew.Name)
}

func TestSearchEndpoints(t *testing.T) {
	f := &stubFetcher{}
	srv := newTestServer(t, f)

	var empty search.Preview
	getJSON(t, srv.URL+"/api/search/instant?q=%20%20", &empty)
	assert.Zero(t, empty.Total)
	assert.Zero(t, f.calls.Load())

	var preview search.Preview
	resp := getJSON(t, srv.URL+"/api/search/instant?q=ast", &preview)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, preview.Total)
	require.Len(t, preview.Matches, 2)
	assert.Equal(t, domain.RegionAsiaPacific, preview.Matches[0].Region)
	assert.Equal(t, "Astra", preview.Matches[1].Name)

	var full service.SearchResult
	resp = getJSON(t, srv.URL+"/api/search?q=ast&sort=desc", &full)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, full.FromCache)
	require.Len(t, full.Hits, 2)
	assert.Equal(t, "astro", full.Hits[0].Name)
	assert.Equal(t, domain.RegionAsiaPacific, full.Hits[0].Region)
}

func TestNewAccountsAndReset(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var first tracker.Result
	getJSON(t, srv.URL+"/api/accounts/new", &first)
	assert.Len(t, first.New, 4)
	assert.Len(t, first.Recent, 4)

	var second tracker.Result
	getJSON(t, srv.URL+"/api/accounts/new", &second)
	assert.Empty(t, second.New)

	resp, err := http.Post(srv.URL+"/api/tracker/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/tracker/reset?confirm=true", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var third tracker.Result
	getJSON(t, srv.URL+"/api/accounts/new", &third)
	assert.Len(t, third.New, 4)

	var runs []domain.TrackerRun
	resp = getJSON(t, srv.URL+"/api/tracker/runs", &runs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, runs)
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	var repos []domain.RepoData
	getJSON(t, srv.URL+"/api/profile/repos", &repos)
	require.Len(t, repos, 2)
	assert.Equal(t, "r1", repos[0].Name)

	var body errorResponse
	resp := getJSON(t, srv.URL+"/api/profile/presence", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchSocket_DebouncesToLatestQuery(t *testing.T) {
	f := &stubFetcher{}
	srv := newTestServer(t, f)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/search"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, q := range []string{"a", "as", "ast", "cind"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(q)))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg socketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "preview", msg.Type)
	require.NotNil(t, msg.Preview)
	assert.Equal(t, "cind", msg.Preview.Query)
	assert.Equal(t, 1, msg.Preview.Total)
	assert.Equal(t, int32(len(domain.Regions)), f.calls.Load())
}
