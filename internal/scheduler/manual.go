package scheduler

import (
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// ManualHost is a frame host driven explicitly by Advance.
// It is used by tests and by the headless renderer.
type ManualHost struct {
	mu      sync.Mutex
	entries []*hostEntry
	frames  int
}

type hostEntry struct {
	fn       func()
	detached bool
}

// NewManualHost creates a host with nothing attached.
func NewManualHost() *ManualHost {
	return &ManualHost{}
}

// Attach registers fn to run on every Advance frame.
func (h *ManualHost) Attach(fn func()) func() {
	e := &hostEntry{fn: fn}

	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()

	return func() { h.remove(e) }
}

func (h *ManualHost) remove(e *hostEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e.detached = true
	for i, cur := range h.entries {
		if cur == e {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// Advance runs n frames synchronously on the calling goroutine.
func (h *ManualHost) Advance(n int) {
	for range n {
		h.mu.Lock()
		entries := append([]*hostEntry(nil), h.entries...)
		h.frames++
		h.mu.Unlock()

		for _, e := range entries {
			h.mu.Lock()
			skip := e.detached
			h.mu.Unlock()
			if !skip {
				e.fn()
			}
		}
	}
}

// AdvanceUntil runs frames until cond returns true or max frames have run.
// It returns the number of frames it ran.
func (h *ManualHost) AdvanceUntil(cond func() bool, max int) int {
	n := 0
	for n < max && !cond() {
		h.Advance(1)
		n++
	}
	return n
}

// Attached returns the number of attached callbacks.
func (h *ManualHost) Attached() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Frames returns how many frames Advance has run.
func (h *ManualHost) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

var _ ports.FrameHost = (*ManualHost)(nil)
