package queue

import "errors"

// Sentinel errors for mailbox operations.
var (
	ErrClosed = errors.New("mailbox closed")
	ErrFull   = errors.New("mailbox full")
)
