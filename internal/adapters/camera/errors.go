package camera

import "errors"

// Sentinel errors for camera acquisition.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrUnavailable      = errors.New("camera unavailable")
	ErrBusy             = errors.New("camera already in use")
)
