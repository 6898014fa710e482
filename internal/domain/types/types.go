// Package types contains the read shapes returned by the session controller
// and served by the API.
package types

import (
	"time"

	"github.com/okian/handnav/internal/domain/gesture"
	"github.com/okian/handnav/internal/domain/stats"
)

// Session is a point-in-time view of the controller.
type Session struct {
	State          string           `json:"state"`
	Running        bool             `json:"running"`
	CurrentGesture gesture.ID       `json:"current_gesture"`
	Confidence     float64          `json:"confidence"`
	Threshold      float64          `json:"threshold"`
	Stats          stats.Statistics `json:"stats"`
	Message        string           `json:"message,omitempty"`
	Source         string           `json:"source"`
	Channel        string           `json:"channel"`
	Endpoint       string           `json:"endpoint"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
}

// Outcome describes what one evaluated reading did.
type Outcome struct {
	Gesture    gesture.ID `json:"gesture"`
	Confidence float64    `json:"confidence"`
	Accepted   bool       `json:"accepted"`
	Executed   bool       `json:"executed"`
	Published  bool       `json:"published"`
	EventID    string     `json:"event_id,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Rejection reasons reported in Outcome.Reason.
const (
	ReasonNoGesture      = "no_gesture"
	ReasonUnknownGesture = "unknown_gesture"
	ReasonLowConfidence  = "low_confidence"
	ReasonClosed         = "closed"
)

// HistoryEntry is one dispatched gesture as kept by the history store.
type HistoryEntry struct {
	Seq        uint64     `json:"seq"`
	EventID    string     `json:"event_id"`
	Gesture    gesture.ID `json:"gesture"`
	Confidence float64    `json:"confidence,omitempty"`
	Origin     string     `json:"origin,omitempty"`
	Remote     bool       `json:"remote"`
	Executed   bool       `json:"executed"`
	At         time.Time  `json:"at"`
}
