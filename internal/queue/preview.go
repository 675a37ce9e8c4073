package queue

import "sync/atomic"

// Preview is a revocable in-memory rendering of the original bytes.
// Release is idempotent and is guaranteed to run when the owning entry
// leaves the queue, so preview memory cannot outlive its image.
type Preview struct {
	released atomic.Bool
	data     []byte
}

func newPreview(data []byte) *Preview {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &Preview{data: owned}
}

// Bytes returns the preview payload, or nil once released.
func (p *Preview) Bytes() []byte {
	if p.released.Load() {
		return nil
	}
	return p.data
}

// Release frees the preview payload. Safe to call more than once.
func (p *Preview) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.data = nil
	}
}

// Released reports whether the handle has been revoked.
func (p *Preview) Released() bool {
	return p.released.Load()
}
