package realtime

import "sync/atomic"

// Latest stamps requests with increasing ids so that only the most recently
// issued one is allowed to render.
type Latest struct {
	seq atomic.Uint64
}

// Begin issues a new request id, superseding every earlier one
func (l *Latest) Begin() uint64 {
	return l.seq.Add(1)
}

// IsCurrent reports whether id is still the latest issued request
func (l *Latest) IsCurrent(id uint64) bool {
	return l.seq.Load() == id
}

// Invalidate supersedes every outstanding request
func (l *Latest) Invalidate() {
	l.seq.Add(1)
}
