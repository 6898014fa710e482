// Package gesture holds the gesture vocabulary and the values produced by
// recognition: readings and the events derived from them.
package gesture

import (
	"encoding/json"
	"strings"
	"time"
)

// ID identifies a hand gesture.
type ID string

// The closed gesture set plus the None sentinel.
const (
	None          ID = "none"
	PointingUp    ID = "pointing_up"
	PointingDown  ID = "pointing_down"
	PointingLeft  ID = "pointing_left"
	PointingRight ID = "pointing_right"
	OpenPalm      ID = "open_palm"
	OKSign        ID = "ok_sign"
	PeaceSign     ID = "peace_sign"
	Pinch         ID = "pinch"
)

// Confidence bounds.
const (
	MinConfidence = 0.0
	MaxConfidence = 100.0
)

var actionable = []ID{
	PointingUp, PointingDown, PointingLeft, PointingRight,
	OpenPalm, OKSign, PeaceSign, Pinch,
}

// All returns the actionable gestures in a stable order.
func All() []ID {
	out := make([]ID, len(actionable))
	copy(out, actionable)
	return out
}

// WithNone returns All plus the None sentinel, the vocabulary a recognizer draws from.
func WithNone() []ID {
	return append(All(), None)
}

// Parse normalizes s and reports whether it names a gesture in the closed set
// (None included).
func Parse(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if id == None {
		return None, true
	}
	return id, id.Known()
}

// Known reports whether id is one of the actionable gestures.
func (id ID) Known() bool {
	for _, g := range actionable {
		if g == id {
			return true
		}
	}
	return false
}

// IsNone reports whether id is the null gesture (or empty).
func (id ID) IsNone() bool {
	return id == None || id == ""
}

func (id ID) String() string { return string(id) }

// DisplayName turns pointing_up into "Pointing Up".
func (id ID) DisplayName() string {
	if id.IsNone() {
		return "None"
	}
	parts := strings.Split(string(id), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Point is a hand landmark. Z is zero for 2D landmarks.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Reading is one recognition result.
type Reading struct {
	Gesture    ID        `json:"gesture"`
	Confidence float64   `json:"confidence"`
	Landmarks  []Point   `json:"landmarks,omitempty"`
	At         time.Time `json:"at"`
}

// Clamp returns r with Confidence bounded to [0,100].
func (r Reading) Clamp() Reading {
	switch {
	case r.Confidence < MinConfidence:
		r.Confidence = MinConfidence
	case r.Confidence > MaxConfidence:
		r.Confidence = MaxConfidence
	}
	return r
}

// Event is a dispatched gesture, local or received from another tab.
type Event struct {
	ID        string          `json:"id"`
	Gesture   ID              `json:"gesture"`
	Origin    string          `json:"origin,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Remote    bool            `json:"remote"`
}
