// Package model contains the wire models passed between tabs and layers.
package model

import (
	"encoding/json"
	"time"
)

// TypeGestureAction tags messages announcing a dispatched gesture.
const TypeGestureAction = "gesture-action"

// DefaultChannel is the channel name tabs share.
const DefaultChannel = "gesture-navigation"

// Message is the broadcast envelope.
//
//	{"type":"gesture-action","gesture":"pointing_up","data":{...},"timestamp":1700000000000}
//
// ID and Origin are optional; transports use them to filter self-delivery
// and duplicates.
type Message struct {
	Type      string          `json:"type"`
	Gesture   string          `json:"gesture,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	ID        string          `json:"id,omitempty"`
	Origin    string          `json:"origin,omitempty"`
}

// Time converts Timestamp (epoch milliseconds) to time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// IsGestureAction reports whether m uses the gesture-action schema.
func (m Message) IsGestureAction() bool {
	return m.Type == TypeGestureAction && m.Gesture != ""
}
