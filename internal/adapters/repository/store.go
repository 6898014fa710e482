// Package repository keeps the recent gesture history of a session.
//
// History lives in memory only and is bounded; it is a view for the
// dashboard and API, not persistence.
package repository

import (
	"context"

	"github.com/okian/handnav/internal/domain/types"
)

// Store provides read/write access to gesture history.
type Store interface {
	// Append records e, assigning its sequence number, and returns the stored entry.
	Append(ctx context.Context, e types.HistoryEntry) (types.HistoryEntry, error)

	// Recent returns up to n entries, newest first. n must be positive.
	Recent(ctx context.Context, n int) ([]types.HistoryEntry, error)

	// Count returns the number of entries currently retained.
	Count(ctx context.Context) int

	Close() error
}
