package fyne

import (
	"sync"
	"time"

	fyneapp "fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// AnimationHost is a frame host backed by Fyne animations.
// Every attachment runs one animation that repeats forever; Fyne ticks it on the
// main thread once per rendered frame.
type AnimationHost struct {
	mu    sync.Mutex
	anims map[*fyneapp.Animation]struct{}
}

// NewAnimationHost creates a host with nothing attached.
func NewAnimationHost() *AnimationHost {
	return &AnimationHost{anims: make(map[*fyneapp.Animation]struct{})}
}

// Attach starts an animation calling fn on every frame.
func (h *AnimationHost) Attach(fn func()) func() {
	anim := fyneapp.NewAnimation(time.Second, func(float32) { fn() })
	anim.Curve = fyneapp.AnimationLinear
	anim.RepeatCount = fyneapp.AnimationRepeatForever

	h.mu.Lock()
	h.anims[anim] = struct{}{}
	h.mu.Unlock()

	anim.Start()

	var once sync.Once
	return func() {
		once.Do(func() {
			anim.Stop()
			h.mu.Lock()
			delete(h.anims, anim)
			h.mu.Unlock()
		})
	}
}

// Attached returns the number of running animations.
func (h *AnimationHost) Attached() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.anims)
}

// Close stops every animation.
func (h *AnimationHost) Close() {
	h.mu.Lock()
	anims := h.anims
	h.anims = make(map[*fyneapp.Animation]struct{})
	h.mu.Unlock()

	for anim := range anims {
		anim.Stop()
	}
}

var _ ports.FrameHost = (*AnimationHost)(nil)
