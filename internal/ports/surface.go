// Package ports define the drawing surface and frame host used by every effect.
package ports

import (
	"image"
	"image/color"
)

// Snapshot is an opaque copy of a surface's pixels.
type Snapshot interface {
	// Bounds returns the size of the captured image.
	Bounds() image.Rectangle
}

// Surface is a 2D drawing target sized in device pixels.
//
// A surface is owned by exactly one effect at a time. Drawing after Release is a
// silent no-op; Release itself is not idempotent and reports domain.ErrSurfaceReleased.
type Surface interface {
	// Size returns the current width and height.
	Size() (w, h int)

	// Resize changes the surface bounds. Content is discarded and
	// resize listeners are notified.
	Resize(w, h int)

	// OnResize registers fn to be called after every Resize.
	OnResize(fn func(w, h int))

	// Clear makes every pixel fully transparent.
	Clear()

	// FillCircle composites a solid circle at (x, y) with radius r.
	// alpha multiplies the color's own alpha.
	FillCircle(x, y, r float64, c color.NRGBA, alpha float64)

	// FillGradientCircle composites a radial gradient from inner (at the centre)
	// to a fully transparent rim.
	FillGradientCircle(x, y, r float64, inner color.NRGBA, alpha float64)

	// FillRect composites an axis-aligned rectangle.
	FillRect(x, y, w, h float64, c color.NRGBA, alpha float64)

	// FillPolygon composites a closed polygon.
	FillPolygon(points []Point, c color.NRGBA, alpha float64)

	// Snapshot copies the current pixels.
	Snapshot() Snapshot

	// Restore composites a snapshot over the current content at the given opacity.
	Restore(s Snapshot, alpha float64)

	// Present publishes the frame to whatever displays the surface.
	Present()

	// Release frees the surface. The surface must not be drawn to afterwards.
	Release() error
}

// Point is a polygon vertex.
type Point struct {
	X, Y float64
}

// FrameHost invokes attached callbacks once per display frame.
//
// All callbacks attached to one host run sequentially on a single logical thread.
// The returned detach function is idempotent.
type FrameHost interface {
	Attach(fn func()) (detach func())
}
