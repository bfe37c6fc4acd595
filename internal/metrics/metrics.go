package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	regionAccounts  *prometheus.GaugeVec
	newAccounts     prometheus.Counter
	searchCache     *prometheus.CounterVec
	searchStores    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gmdb_fetch_total",
			Help: "Remote dataset fetches by target and status class.",
		}, []string{"target", "status"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gmdb_fetch_duration_seconds",
			Help:    "Remote dataset fetch latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gmdb_http_requests_total",
			Help: "HTTP requests served by route and status class.",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gmdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		regionAccounts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gmdb_region_accounts",
			Help: "Accounts in the last fetched shard per region.",
		}, []string{"region"}),
		newAccounts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gmdb_new_accounts_total",
			Help: "Accounts reported as newly seen by the tracker.",
		}),
		searchCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gmdb_search_cache_total",
			Help: "Full searches served from or missing the instant result cache.",
		}, []string{"result"}),
		searchStores: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gmdb_search_cache_stores_total",
			Help: "Instant hit lists written to the search cache by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveFetch(target string, status int, d time.Duration) {
	m.fetchTotal.WithLabelValues(target, StatusBucket(status)).Inc()
	m.fetchDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, StatusBucket(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) SetRegionAccounts(region string, n int) {
	m.regionAccounts.WithLabelValues(region).Set(float64(n))
}

func (m *Metrics) AddNewAccounts(n int) {
	m.newAccounts.Add(float64(n))
}

func (m *Metrics) SearchCache(hit bool) {
	if hit {
		m.searchCache.WithLabelValues("hit").Inc()
		return
	}
	m.searchCache.WithLabelValues("miss").Inc()
}

// SearchCacheStore counts one cache write; outcome is stored, overflow or
// failed.
func (m *Metrics) SearchCacheStore(outcome string) {
	m.searchStores.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StatusBucket collapses a status code into its class; 0 means the request
// never produced a response.
func StatusBucket(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
