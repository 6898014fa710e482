package service

import "errors"

// Sentinel errors returned by the session controller.
var (
	ErrAcquire   = errors.New("camera acquisition failed")
	ErrCancelled = errors.New("session stopped during camera acquisition")
	ErrClosed    = errors.New("session closed")
)
