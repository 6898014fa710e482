package api

import (
	"errors"
	"net/http"

	service "github.com/okian/handnav/internal/app"
)

// SessionHandler drives the session lifecycle.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleGetSession handles GET /session.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}

// HandleStart handles POST /session/start. A camera failure answers 503
// with the user-facing message; a Stop racing the acquisition answers 409.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_start"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	err := h.deps.Start(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.deps.Snapshot())
	case errors.Is(err, service.ErrCancelled):
		writeError(w, http.StatusConflict, "cancelled", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrAcquire):
		msg := h.deps.Snapshot().Message
		if msg == "" {
			msg = err.Error()
		}
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "camera_unavailable", Message: msg})
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// HandleStop handles POST /session/stop.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.deps.Stop()
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}

// HandleReset handles POST /session/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.deps.ResetStats()
	writeJSON(w, http.StatusOK, h.deps.Snapshot())
}
