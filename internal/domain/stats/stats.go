// Package stats tracks per-session recognition statistics.
//
// Update order: a reading first moves exactly one of GesturesDetected or
// Rejected, then Accuracy is recomputed from the new counters. Accuracy is
// therefore GesturesDetected / (GesturesDetected + Rejected) * 100 after every
// evaluation, and 0 before the first one.
package stats

// Statistics is a snapshot of session counters.
type Statistics struct {
	GesturesDetected uint64  `json:"gestures_detected"`
	Rejected         uint64  `json:"rejected"`
	ActionsExecuted  uint64  `json:"actions_executed"`
	RemoteActions    uint64  `json:"remote_actions"`
	Accuracy         float64 `json:"accuracy"`
}

// Tracker accumulates Statistics. It is not safe for concurrent use; the
// session controller serializes access.
type Tracker struct {
	s Statistics
}

// Detected records a reading that cleared the threshold.
func (t *Tracker) Detected() {
	t.s.GesturesDetected++
	t.recompute()
}

// Rejected records a reading that did not qualify.
func (t *Tracker) Rejected() {
	t.s.Rejected++
	t.recompute()
}

// Executed records a locally dispatched action. It is ignored when it would
// exceed GesturesDetected, keeping ActionsExecuted <= GesturesDetected.
func (t *Tracker) Executed() bool {
	if t.s.ActionsExecuted >= t.s.GesturesDetected {
		return false
	}
	t.s.ActionsExecuted++
	return true
}

// Remote records an action triggered by another tab.
func (t *Tracker) Remote() {
	t.s.RemoteActions++
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.s = Statistics{}
}

// Snapshot returns a copy of the counters.
func (t *Tracker) Snapshot() Statistics {
	return t.s
}

func (t *Tracker) recompute() {
	t.s.Accuracy = Accuracy(t.s.GesturesDetected, t.s.Rejected)
}

// Accuracy returns detected/(detected+rejected) as a percentage in [0,100].
func Accuracy(detected, rejected uint64) float64 {
	total := detected + rejected
	if total == 0 {
		return 0
	}
	pct := float64(detected) / float64(total) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
