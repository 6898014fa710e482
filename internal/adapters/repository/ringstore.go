package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/handnav/internal/domain/types"
	"github.com/okian/handnav/pkg/metrics"
)

// RingStore is a fixed-size circular buffer; once full, each append
// overwrites the oldest entry.
type RingStore struct {
	mu       sync.RWMutex
	buf      []types.HistoryEntry
	start    int // index of the oldest entry
	size     int
	capacity int
	seq      uint64
	closed   bool

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

// NewRingStore constructs the store and starts its metrics updater, which
// stops on Close or when ctx ends.
func NewRingStore(ctx context.Context, opts ...Option) *RingStore {
	s := &RingStore{
		capacity:              DefaultCapacity,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buf = make([]types.HistoryEntry, s.capacity)

	metrics.UpdateHistorySize(0)
	s.startMetricsUpdater(ctx)
	return s
}

// Append implements Store.
func (s *RingStore) Append(_ context.Context, e types.HistoryEntry) (types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.HistoryEntry{}, ErrClosed
	}

	s.seq++
	e.Seq = s.seq
	if e.At.IsZero() {
		e.At = time.Now()
	}

	if s.size < s.capacity {
		s.buf[(s.start+s.size)%s.capacity] = e
		s.size++
	} else {
		s.buf[s.start] = e
		s.start = (s.start + 1) % s.capacity
	}
	return e, nil
}

// Recent implements Store.
func (s *RingStore) Recent(_ context.Context, n int) ([]types.HistoryEntry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n = min(n, s.size)
	out := make([]types.HistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.start + s.size - 1 - i) % s.capacity
		out = append(out, s.buf[idx])
	}
	return out, nil
}

// Count implements Store.
func (s *RingStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Close stops the metrics updater. Reads keep working; appends fail.
func (s *RingStore) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

func (s *RingStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateHistorySize(s.Count(ctx))
			}
		}
	}()
}
