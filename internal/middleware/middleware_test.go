package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	route  string
	status int
}

type fakeObserver struct {
	calls []observed
}

func (f *fakeObserver) ObserveRequest(route string, status int, _ time.Duration) {
	f.calls = append(f.calls, observed{route, status})
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	obs := &fakeObserver{}
	h := RequestID(zerolog.Nop(), obs)(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/7", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	require.Len(t, obs.calls, 1)
	assert.Equal(t, observed{"GET /things/{id}", http.StatusTeapot}, obs.calls[0])
}

func TestRequestID_KeepsIncomingID(t *testing.T) {
	h := RequestID(zerolog.Nop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", GetRequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestRequestID_UnmatchedRoute(t *testing.T) {
	obs := &fakeObserver{}
	h := RequestID(zerolog.Nop(), obs)(http.NewServeMux())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, observed{"unmatched", http.StatusNotFound}, obs.calls[0])
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
