package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/handnav/internal/domain/gesture"
)

// maxDispatchBody bounds POST /gestures/dispatch payloads.
const maxDispatchBody = 64 << 10

// dispatchRequest mirrors the OpenAPI schema for POST /gestures/dispatch.
type dispatchRequest struct {
	Gesture    string          `json:"gesture" validate:"required,oneof=none pointing_up pointing_down pointing_left pointing_right open_palm ok_sign peace_sign pinch"`
	Confidence *float64        `json:"confidence" validate:"required,gte=0,lte=100"`
	Landmarks  []gesture.Point `json:"landmarks" validate:"omitempty,max=42"`
}

// GesturesHandler lists and dispatches gestures.
type GesturesHandler struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewGesturesHandler creates a new gestures handler.
func NewGesturesHandler(deps Dependencies, validate *validator.Validate) *GesturesHandler {
	return &GesturesHandler{deps: deps, validate: validate}
}

// HandleList handles GET /gestures.
func (h *GesturesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Gestures())
}

// HandleDispatch handles POST /gestures/dispatch: the reading goes through
// the same evaluation as one from the recognition loop.
func (h *GesturesHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.dispatch_gesture"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req dispatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDispatchBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.Gesture = strings.ToLower(strings.TrimSpace(req.Gesture))
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, describe(err)))
		return
	}

	out := h.deps.Evaluate(r.Context(), gesture.Reading{
		Gesture:    gesture.ID(req.Gesture),
		Confidence: *req.Confidence,
		Landmarks:  req.Landmarks,
		At:         time.Now(),
	})
	writeJSON(w, http.StatusOK, out)
}

// describe reduces validator output to the first failing field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag())
	}
	return err
}
