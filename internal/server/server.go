package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gmdb/internal/api"
	"gmdb/internal/constants"
	"gmdb/internal/domain"
	"gmdb/internal/metrics"
	"gmdb/internal/middleware"
	"gmdb/internal/service"
	"gmdb/internal/tracker"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const runsLimit = 50

type Server struct {
	dataset  *service.DatasetService
	search   *service.SearchService
	profile  *service.ProfileService
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	debounce time.Duration
}

func New(dataset *service.DatasetService, search *service.SearchService, profile *service.ProfileService, m *metrics.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		dataset: dataset,
		search:  search,
		profile: profile,
		metrics: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		debounce: constants.SearchDebounce,
	}
}

// Handler returns the routed API behind CORS and the request-id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/index", s.handleIndex)
	mux.HandleFunc("GET /api/servers", s.handleServers)
	mux.HandleFunc("GET /api/regions/{region}/accounts", s.handleRegion)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/search/instant", s.handleInstant)
	mux.HandleFunc("GET /ws/search", s.handleSearchSocket)
	mux.HandleFunc("GET /api/accounts/new", s.handleNewAccounts)
	mux.HandleFunc("POST /api/tracker/reset", s.handleReset)
	mux.HandleFunc("GET /api/tracker/runs", s.handleRuns)
	mux.HandleFunc("GET /api/profile/repos", s.handleRepos)
	mux.HandleFunc("GET /api/profile/presence", s.handlePresence)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return middleware.RequestID(s.logger, s.metrics)(c.Handler(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.dataset.Index(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.dataset.Servers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	region, err := domain.ParseRegion(r.PathValue("region"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, order, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	listing, err := s.dataset.Region(r.Context(), region, state, order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dataset.Statistics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	state, order, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.search.Full(r.Context(), r.URL.Query().Get("q"), state, order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInstant(w http.ResponseWriter, r *http.Request) {
	preview, err := s.search.Instant(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleNewAccounts(w http.ResponseWriter, r *http.Request) {
	result, err := s.dataset.CheckNewAccounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := s.dataset.ResetHistory(r.Context(), confirmed); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.dataset.Runs(r.Context(), runsLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.profile.Repos(r.Context()))
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile.Presence(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// parseFilter reads year, gender (both repeatable), start, end and sort
// from the query string.
func parseFilter(r *http.Request) (domain.FilterState, domain.SortOrder, error) {
	q := r.URL.Query()
	var state domain.FilterState

	for _, y := range q["year"] {
		if y = strings.TrimSpace(y); y != "" {
			state.Years = append(state.Years, y)
		}
	}

	for _, g := range q["gender"] {
		switch strings.ToLower(strings.TrimSpace(g)) {
		case "0", "male":
			state.Genders = append(state.Genders, domain.GenderMale)
		case "1", "female":
			state.Genders = append(state.Genders, domain.GenderFemale)
		default:
			return state, "", badRequest("invalid gender %q", g)
		}
	}

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return state, "", badRequest("invalid start date %q", v)
		}
		state.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return state, "", badRequest("invalid end date %q", v)
		}
		state.End = &t
	}

	order, err := domain.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return state, "", &requestError{msg: err.Error()}
	}
	return state, order, nil
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps service errors onto status codes. Every remote failure
// is reported with the same generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		status, msg = http.StatusBadRequest, reqErr.msg
	case errors.Is(err, domain.ErrUnknownRegion):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, tracker.ErrResetNotConfirmed):
		status, msg = http.StatusPreconditionRequired, err.Error()
	case errors.Is(err, service.ErrPresenceNotConfigured):
		status, msg = http.StatusNotFound, err.Error()
	case api.IsFetchFailure(err), errors.Is(err, service.ErrNoData), errors.Is(err, api.ErrPresenceUnavailable):
		status, msg = http.StatusBadGateway, constants.FetchFailedMessage
	default:
		var pf *api.ParseFailure
		if errors.As(err, &pf) {
			status, msg = http.StatusBadGateway, constants.FetchFailedMessage
		}
	}

	zerolog.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetRequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
