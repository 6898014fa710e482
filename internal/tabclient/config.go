package tabclient

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrInvalidGesture = errors.New("invalid gesture")
	ErrUnhealthy      = errors.New("service unhealthy")
)

// Defaults for the tab client.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultInterval = 200 * time.Millisecond
	DefaultListen   = 5 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// Config holds configuration for one tab session.
type Config struct {
	BaseURL  string        // Base URL of the service
	Send     string        // Gesture to send; empty only listens
	Count    int           // How many times to send it
	Interval time.Duration // Pause between sends
	Listen   time.Duration // How long to keep receiving after the last send
	Timeout  time.Duration // HTTP and dial timeout
	Verbose  bool          // Log every received message
}

// Stats holds the session summary.
type Stats struct {
	Received  int
	Sent      int
	Failed    int
	ByGesture map[string]int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
