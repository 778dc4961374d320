// Package raster provides an in-memory Surface backed by *image.RGBA.
//
// Shapes are rasterized with golang.org/x/image/vector and composited source-over.
// Each shape only rasterizes its bounding box clipped to the surface, so a frame
// with hundreds of small particles stays cheap.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/vector"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// kappa places cubic control points so four curves approximate a circle.
const kappa = 0.5522847498

// Surface is a ports.Surface drawing into an RGBA image.
//
// Thread-safety: all methods may be called from any goroutine.
type Surface struct {
	mu        sync.Mutex
	img       *image.RGBA
	z         vector.Rasterizer
	listeners []func(w, h int)
	onPresent func()
	frames    int
	released  bool
}

// New creates a transparent w×h surface. Negative sizes are treated as zero.
func New(w, h int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))}
}

// Size returns the surface dimensions.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize reallocates the image, discarding its content, and notifies listeners.
func (s *Surface) Resize(w, h int) {
	w, h = max(w, 0), max(h, 0)

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	if b := s.img.Bounds(); b.Dx() != w || b.Dy() != h {
		s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	listeners := append([]func(int, int){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(w, h)
	}
}

// OnResize registers fn to run after every Resize.
func (s *Surface) OnResize(fn func(w, h int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnPresent registers fn to run after every Present, replacing any previous hook.
func (s *Surface) OnPresent(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPresent = fn
}

// Clear makes every pixel transparent.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	clear(s.img.Pix)
}

// FillCircle composites a solid circle.
func (s *Surface) FillCircle(x, y, r float64, c color.NRGBA, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || r <= 0 {
		return
	}
	c = scaleAlpha(c, alpha)
	if c.A == 0 {
		return
	}
	s.fillPath(circleBounds(x, y, r), func(dx, dy float32) {
		circlePath(&s.z, float32(x)-dx, float32(y)-dy, float32(r))
	}, image.NewUniform(c))
}

// FillGradientCircle composites a radial gradient from inner at the centre to transparent at r.
func (s *Surface) FillGradientCircle(x, y, r float64, inner color.NRGBA, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || r <= 0 {
		return
	}
	inner = scaleAlpha(inner, alpha)
	if inner.A == 0 {
		return
	}
	s.fillPath(circleBounds(x, y, r), func(dx, dy float32) {
		circlePath(&s.z, float32(x)-dx, float32(y)-dy, float32(r))
	}, &radialGradient{cx: x, cy: y, r: r, c: inner})
}

// FillRect composites an axis-aligned rectangle, snapped to whole pixels.
func (s *Surface) FillRect(x, y, w, h float64, c color.NRGBA, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || w <= 0 || h <= 0 {
		return
	}
	c = scaleAlpha(c, alpha)
	if c.A == 0 {
		return
	}
	r := image.Rect(int(math.Round(x)), int(math.Round(y)), int(math.Round(x+w)), int(math.Round(y+h)))
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

// FillPolygon composites a closed polygon.
func (s *Surface) FillPolygon(points []ports.Point, c color.NRGBA, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || len(points) < 3 {
		return
	}
	c = scaleAlpha(c, alpha)
	if c.A == 0 {
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	bounds := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))

	s.fillPath(bounds, func(dx, dy float32) {
		s.z.MoveTo(float32(points[0].X)-dx, float32(points[0].Y)-dy)
		for _, p := range points[1:] {
			s.z.LineTo(float32(p.X)-dx, float32(p.Y)-dy)
		}
		s.z.ClosePath()
	}, image.NewUniform(c))
}

// fillPath rasterizes the path built by path over bounds, clipped to the image.
// path receives the offset to subtract from absolute coordinates. Callers hold s.mu.
func (s *Surface) fillPath(bounds image.Rectangle, path func(dx, dy float32), src image.Image) {
	clip := bounds.Intersect(s.img.Bounds())
	if clip.Empty() {
		return
	}

	s.z.Reset(clip.Dx(), clip.Dy())
	s.z.DrawOp = draw.Over
	path(float32(clip.Min.X), float32(clip.Min.Y))
	s.z.Draw(s.img, clip, src, clip.Min)
}

// Snapshot copies the current pixels.
func (s *Surface) Snapshot() ports.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &snapshot{img: cloneRGBA(s.img)}
}

// Restore composites a snapshot taken from this or another surface at the given opacity.
func (s *Surface) Restore(snap ports.Snapshot, alpha float64) {
	sn, ok := snap.(*snapshot)
	if !ok || sn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || alpha <= 0 {
		return
	}
	a := uint8(math.Round(math.Min(alpha, 1) * 255))
	draw.DrawMask(s.img, sn.img.Bounds().Intersect(s.img.Bounds()), sn.img, image.Point{},
		image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Over)
}

// Present counts the frame and runs the present hook.
func (s *Surface) Present() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.frames++
	hook := s.onPresent
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Release frees the pixel buffer. A second call returns domain.ErrSurfaceReleased.
func (s *Surface) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return domain.ErrSurfaceReleased
	}
	s.released = true
	s.img = image.NewRGBA(image.Rectangle{})
	s.listeners = nil
	s.onPresent = nil
	return nil
}

// Released reports whether Release was called.
func (s *Surface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Frames returns the number of presented frames.
func (s *Surface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Image returns a copy of the current pixels.
func (s *Surface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRGBA(s.img)
}

type snapshot struct {
	img *image.RGBA
}

func (sn *snapshot) Bounds() image.Rectangle {
	return sn.img.Bounds()
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func scaleAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	alpha = math.Max(0, math.Min(1, alpha))
	c.A = uint8(math.Round(float64(c.A) * alpha))
	return c
}

func circleBounds(x, y, r float64) image.Rectangle {
	return image.Rect(int(math.Floor(x-r)), int(math.Floor(y-r)), int(math.Ceil(x+r)), int(math.Ceil(y+r)))
}

func circlePath(z *vector.Rasterizer, cx, cy, r float32) {
	k := r * kappa
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
}

// radialGradient fades c linearly to transparent from the centre to radius r.
type radialGradient struct {
	cx, cy, r float64
	c         color.NRGBA
}

func (g *radialGradient) ColorModel() color.Model { return color.NRGBAModel }

func (g *radialGradient) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g *radialGradient) At(x, y int) color.Color {
	d := math.Hypot(float64(x)+0.5-g.cx, float64(y)+0.5-g.cy) / g.r
	if d >= 1 {
		return color.NRGBA{}
	}
	c := g.c
	c.A = uint8(math.Round(float64(c.A) * (1 - d)))
	return c
}

var _ ports.Surface = (*Surface)(nil)
