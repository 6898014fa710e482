package broadcast

import "errors"

// Sentinel errors for broadcast transports.
var (
	ErrTransportClosed = errors.New("broadcast transport closed")
	ErrInvalidName     = errors.New("invalid channel name")
	ErrPublish         = errors.New("broadcast publish failed")
)
