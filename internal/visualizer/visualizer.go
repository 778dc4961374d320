// Package visualizer draws live capture spectra onto a surface.
//
// A Visualizer owns one scheduler loop. Each frame it reads the source's spectrum
// and redraws the surface in the attached style. It never closes the source or
// releases the surface: both belong to the caller.
package visualizer

import (
	"fmt"
	"image/color"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
)

const (
	// DefaultLEDBars is one bar per octave band.
	DefaultLEDBars = 10
	// DefaultBars is the bar count of the plain bar style.
	DefaultBars = 32
)

// Source provides spectrum bins. capture.Session implements it.
type Source interface {
	ReadSpectrum() []uint8
}

// renderer draws one frame of a style.
type renderer interface {
	draw(s ports.Surface, bins []uint8)
}

// Options configure a Visualizer.
type Options struct {
	LEDBars int // bars of the LED style; 0 selects DefaultLEDBars
	Bars    int // bars of the plain style; 0 selects DefaultBars

	// WaveColor is the single waveform color. Ignored when Multicolor is set.
	WaveColor  color.NRGBA
	Multicolor bool

	// FPS is the expected frame rate, used to step the waveform spring.
	FPS int

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LEDBars <= 0 {
		o.LEDBars = DefaultLEDBars
	}
	if o.Bars <= 0 {
		o.Bars = DefaultBars
	}
	if o.WaveColor == (color.NRGBA{}) {
		o.WaveColor = DefaultWaveColor
	}
	if o.FPS <= 0 {
		o.FPS = 60
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Visualizer renders a Source onto a Surface once per host frame.
type Visualizer struct {
	opts   Options
	logger *slog.Logger
	sched  *scheduler.Scheduler

	mu       sync.Mutex
	source   Source
	surface  ports.Surface
	style    domain.VisualizerStyle
	renderer renderer
	tok      *scheduler.Token
	attached bool
}

// New creates a detached visualizer on host.
func New(host ports.FrameHost, opts Options) *Visualizer {
	opts = opts.withDefaults()
	return &Visualizer{
		opts:   opts,
		logger: opts.Logger,
		sched:  scheduler.New(host, "visualizer", opts.Logger),
	}
}

// Attach starts drawing source onto surface in style. It fails with
// domain.ErrAlreadyAttached until Detach is called.
func (v *Visualizer) Attach(source Source, surface ports.Surface, style domain.VisualizerStyle) error {
	if source == nil {
		return domain.NewValidationError("source", nil, "source cannot be nil")
	}
	if surface == nil {
		return domain.NewRenderSurfaceError("visualizer", "attach", "no surface", domain.ErrSurfaceUnavailable)
	}
	if !style.Valid() {
		return domain.NewValidationError("style", style, "unknown visualizer style")
	}

	v.mu.Lock()
	if v.attached {
		v.mu.Unlock()
		return fmt.Errorf("attach %s: %w", style, domain.ErrAlreadyAttached)
	}
	v.attached = true
	v.source = source
	v.surface = surface
	v.style = style
	v.renderer = v.newRenderer(style)
	v.mu.Unlock()

	tok, err := v.sched.Start(v.step)
	if err != nil {
		v.reset()
		return err
	}

	v.mu.Lock()
	v.tok = tok
	v.mu.Unlock()

	v.logger.Debug("visualizer attached", slog.String("style", string(style)))
	return nil
}

func (v *Visualizer) newRenderer(style domain.VisualizerStyle) renderer {
	switch style {
	case domain.StyleLEDBars:
		return newLEDBars(v.opts.LEDBars)
	case domain.StyleBars:
		return newGradientBars(v.opts.Bars)
	default:
		palette := []color.NRGBA{v.opts.WaveColor}
		if v.opts.Multicolor {
			palette = MulticolorPalette
		}
		return newWaveform(palette, v.opts.FPS)
	}
}

func (v *Visualizer) step(int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.attached {
		return false
	}
	bins := v.source.ReadSpectrum()
	v.surface.Clear()
	v.renderer.draw(v.surface, bins)
	v.surface.Present()
	return true
}

// Detach stops drawing. The loop is cancelled before references are dropped,
// so no frame touches the surface after Detach returns. Detaching twice is a no-op.
func (v *Visualizer) Detach() {
	v.mu.Lock()
	tok := v.tok
	v.mu.Unlock()

	v.sched.Cancel(tok)
	v.reset()
}

func (v *Visualizer) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.attached {
		v.logger.Debug("visualizer detached", slog.String("style", string(v.style)))
	}
	v.attached = false
	v.source = nil
	v.surface = nil
	v.renderer = nil
	v.tok = nil
	v.style = ""
}

// Attached reports whether a source is attached.
func (v *Visualizer) Attached() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached
}

// Style returns the attached style, or "" when detached.
func (v *Visualizer) Style() domain.VisualizerStyle {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.style
}

// Running reports whether the draw loop is active.
func (v *Visualizer) Running() bool {
	v.mu.Lock()
	tok := v.tok
	v.mu.Unlock()
	return v.sched.IsActive(tok)
}
