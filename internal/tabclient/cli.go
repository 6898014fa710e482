package tabclient

import (
	"fmt"
	"os"

	"github.com/okian/handnav/pkg/logger"
)

// SetupLogging initializes the logger, teeing into logFile when set.
func SetupLogging(logFile string, verbose bool) error {
	opts := []logger.Option{}
	if logFile != "" {
		opts = append(opts, logger.WithFile(logFile))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the tab client.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`handnav tab client
==================

Joins the gesture channel over /ws the way a browser tab does. Prints the
gestures other tabs perform and can send its own.

Usage:
  go run ./cmd/tab [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -send string
        Gesture to send, e.g. pointing_up (default: listen only)
  -count int
        Number of times to send the gesture (default 1)
  -interval duration
        Pause between sends (default 200ms)
  -listen duration
        How long to keep receiving after sending (default 5s)
  -timeout duration
        HTTP and dial timeout (default 10s)
  -log string
        Also write logs to this file
  -verbose
        Log every received message
  -help
        Show this help message

Examples:
  # Watch another tab's gestures for a minute
  go run ./cmd/tab -listen 1m

  # Scroll every other tab down three times
  go run ./cmd/tab -send pointing_down -count 3
`)
}
