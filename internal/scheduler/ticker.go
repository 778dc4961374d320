package scheduler

import (
	"sync"
	"time"

	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// TickerHost drives attached callbacks from one goroutine at a fixed frame rate.
type TickerHost struct {
	mu      sync.Mutex
	entries []*hostEntry

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewTickerHost starts a host ticking fps times per second.
// Non-positive fps selects 60.
func NewTickerHost(fps int) *TickerHost {
	if fps <= 0 {
		fps = 60
	}
	h := &TickerHost{stop: make(chan struct{})}

	h.wg.Add(1)
	go h.run(time.Second / time.Duration(fps))
	return h
}

func (h *TickerHost) run(interval time.Duration) {
	defer h.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.frame()
		}
	}
}

func (h *TickerHost) frame() {
	h.mu.Lock()
	entries := append([]*hostEntry(nil), h.entries...)
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

// Attach registers fn to run on every tick.
func (h *TickerHost) Attach(fn func()) func() {
	e := &hostEntry{fn: fn}

	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()

	return func() {
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
}

// Close stops the ticking goroutine and waits for it to exit.
// Callbacks still attached never run again.
func (h *TickerHost) Close() {
	h.once.Do(func() { close(h.stop) })
	h.wg.Wait()
}

var _ ports.FrameHost = (*TickerHost)(nil)
