// Package widgets provides custom Fyne widgets for the vaporfx shell.
package widgets

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/vaporfx/internal/adapter/surface/raster"
)

// EffectLayer is a widget showing a raster.Surface.
//
// Effects draw into the surface from the frame host; every Present refreshes the
// widget. Resizing the widget resizes the surface so effects can react. Effects
// that own their surface release it when they end; Surface then hands out a new one.
type EffectLayer struct {
	widget.BaseWidget

	raster   *canvas.Raster
	fallback fyne.Size

	mu      sync.Mutex
	surface *raster.Surface
}

// NewEffectLayer creates a transparent layer. fallback sizes the surface until
// the widget is laid out.
func NewEffectLayer(fallback fyne.Size) *EffectLayer {
	l := &EffectLayer{fallback: fallback}
	l.raster = canvas.NewRaster(l.draw)
	l.ExtendBaseWidget(l)
	return l
}

// CreateRenderer implements fyne.Widget.
func (l *EffectLayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(l.raster)
}

// MinSize returns a zero size so the layer fills whatever space it gets.
func (l *EffectLayer) MinSize() fyne.Size {
	return fyne.NewSize(0, 0)
}

// Resize resizes the widget and its live surface.
func (l *EffectLayer) Resize(size fyne.Size) {
	l.BaseWidget.Resize(size)

	l.mu.Lock()
	s := l.surface
	l.mu.Unlock()

	if s != nil && !s.Released() {
		s.Resize(int(size.Width), int(size.Height))
	}
}

// Surface returns the layer's surface, allocating a new one when there is none
// or the previous one was released.
func (l *EffectLayer) Surface() *raster.Surface {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.surface != nil && !l.surface.Released() {
		return l.surface
	}

	size := l.Size()
	if size.Width < 1 || size.Height < 1 {
		size = l.fallback
	}
	l.surface = raster.New(int(size.Width), int(size.Height))
	l.surface.OnPresent(l.present)
	return l.surface
}

// Clear wipes the live surface and redraws the widget.
func (l *EffectLayer) Clear() {
	l.mu.Lock()
	s := l.surface
	l.mu.Unlock()

	if s != nil {
		s.Clear()
	}
	l.present()
}

// present runs on the frame host; the refresh is handed to the UI thread.
func (l *EffectLayer) present() {
	fyne.Do(l.raster.Refresh)
}

// draw is the raster generator.
func (l *EffectLayer) draw(w, h int) image.Image {
	l.mu.Lock()
	s := l.surface
	l.mu.Unlock()

	if s == nil || s.Released() {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return s.Image()
}
