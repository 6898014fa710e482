package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrInvalidLimit = errors.New("invalid history limit")
	ErrClosed       = errors.New("history store closed")
)
