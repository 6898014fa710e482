package api

import "net/http"

// HostHandler exposes the virtual page state.
type HostHandler struct {
	view HostView
}

// NewHostHandler creates a host handler; a nil view answers 404.
func NewHostHandler(view HostView) *HostHandler {
	return &HostHandler{view: view}
}

// HandleGetHost handles GET /host.
func (h *HostHandler) HandleGetHost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || h.view == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.view.Snapshot())
}
