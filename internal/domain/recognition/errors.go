package recognition

import "errors"

// Sentinel kinds for recognition errors.
var (
	ErrUnknownSource = errors.New("unknown recognition source")
	ErrScript        = errors.New("invalid readings script")
)
