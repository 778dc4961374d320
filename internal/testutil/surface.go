package testutil

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// RecordingSurface is a ports.Surface that records draw calls instead of rasterizing.
type RecordingSurface struct {
	mu sync.Mutex

	w, h      int
	listeners []func(w, h int)

	Circles   int
	Gradients int
	Rects     int
	Polygons  int
	Clears    int
	Presents  int
	Restores  []float64 // alpha of each Restore call
	Releases  int

	// MaxAlpha is the largest alpha passed to any draw call.
	MaxAlpha float64
	// MinAlpha is the smallest alpha passed to any draw call.
	MinAlpha float64

	// FailRelease makes Release return an error once.
	FailRelease bool

	released bool
}

type recordedSnapshot struct{ bounds image.Rectangle }

func (s recordedSnapshot) Bounds() image.Rectangle { return s.bounds }

// NewRecordingSurface creates a w×h recording surface.
func NewRecordingSurface(w, h int) *RecordingSurface {
	return &RecordingSurface{w: w, h: h, MinAlpha: 1}
}

func (s *RecordingSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (s *RecordingSurface) Resize(w, h int) {
	s.mu.Lock()
	s.w, s.h = w, h
	listeners := append([]func(int, int){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(w, h)
	}
}

func (s *RecordingSurface) OnResize(fn func(w, h int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RecordingSurface) Clear() {
	s.record(func() { s.Clears++ }, -1)
}

func (s *RecordingSurface) FillCircle(_, _, _ float64, _ color.NRGBA, alpha float64) {
	s.record(func() { s.Circles++ }, alpha)
}

func (s *RecordingSurface) FillGradientCircle(_, _, _ float64, _ color.NRGBA, alpha float64) {
	s.record(func() { s.Gradients++ }, alpha)
}

func (s *RecordingSurface) FillRect(_, _, _, _ float64, _ color.NRGBA, alpha float64) {
	s.record(func() { s.Rects++ }, alpha)
}

func (s *RecordingSurface) FillPolygon(_ []ports.Point, _ color.NRGBA, alpha float64) {
	s.record(func() { s.Polygons++ }, alpha)
}

func (s *RecordingSurface) Snapshot() ports.Snapshot {
	w, h := s.Size()
	return recordedSnapshot{bounds: image.Rect(0, 0, w, h)}
}

func (s *RecordingSurface) Restore(_ ports.Snapshot, alpha float64) {
	s.record(func() { s.Restores = append(s.Restores, alpha) }, alpha)
}

func (s *RecordingSurface) Present() {
	s.record(func() { s.Presents++ }, -1)
}

func (s *RecordingSurface) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return domain.ErrSurfaceReleased
	}
	s.Releases++
	if s.FailRelease {
		s.FailRelease = false
		return errors.New("release failed")
	}
	s.released = true
	return nil
}

// Released reports whether Release succeeded.
func (s *RecordingSurface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Counts returns the circle, gradient and present counters.
func (s *RecordingSurface) Counts() (circles, gradients, presents int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Circles, s.Gradients, s.Presents
}

// Drawn returns the number of shapes drawn so far.
func (s *RecordingSurface) Drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Circles + s.Gradients + s.Rects + s.Polygons
}

// record counts a call made while the surface is live.
// Draw calls after release are dropped, like real surfaces.
func (s *RecordingSurface) record(fn func(), alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	fn()
	if alpha >= 0 {
		s.MaxAlpha = max(s.MaxAlpha, alpha)
		s.MinAlpha = min(s.MinAlpha, alpha)
	}
}

var _ ports.Surface = (*RecordingSurface)(nil)
