// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/handnav/internal/adapters/host"
	"github.com/okian/handnav/internal/domain/actions"
	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/types"
)

// DefaultMaxHistoryLimit caps GET /history?limit.
const DefaultMaxHistoryLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Start(ctx context.Context) error
	Stop()
	ResetStats()
	Snapshot() types.Session

	Evaluate(ctx context.Context, r gesture.Reading) types.Outcome
	Gestures() []actions.Descriptor

	History(ctx context.Context, n int) ([]types.HistoryEntry, error)
}

// HostView exposes the virtual page, when the server drives one.
type HostView interface {
	Snapshot() host.State
}

// Option configures the Server.
type Option func(*Server)

// WithMaxHistoryLimit caps the history page size.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithHostView enables GET /host.
func WithHostView(v HostView) Option {
	return func(s *Server) {
		s.hostView = v
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxHistoryLimit int
	hostView        HostView

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	sessionHandler   *SessionHandler
	gesturesHandler  *GesturesHandler
	historyHandler   *HistoryHandler
	hostHandler      *HostHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxHistoryLimit: DefaultMaxHistoryLimit}
	for _, opt := range opts {
		opt(s)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.sessionHandler = NewSessionHandler(deps)
	s.gesturesHandler = NewGesturesHandler(deps, validate)
	s.historyHandler = NewHistoryHandler(deps, s.maxHistoryLimit)
	s.hostHandler = NewHostHandler(s.hostView)
	s.dashboardHandler = newDashboardHandler()
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("/session/start", MetricsMiddleware(s.sessionHandler.HandleStart, "session_start"))
	mux.HandleFunc("/session/stop", MetricsMiddleware(s.sessionHandler.HandleStop, "session_stop"))
	mux.HandleFunc("/session/reset", MetricsMiddleware(s.sessionHandler.HandleReset, "session_reset"))
	mux.HandleFunc("/gestures", MetricsMiddleware(s.gesturesHandler.HandleList, "gestures"))
	mux.HandleFunc("/gestures/dispatch", MetricsMiddleware(s.gesturesHandler.HandleDispatch, "gestures_dispatch"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/host", MetricsMiddleware(s.hostHandler.HandleGetHost, "host"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
