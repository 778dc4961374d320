package particles

import (
	"errors"
	"image/color"
	"log/slog"
	"math"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
)

const (
	pixelsPerParticle = 8000 // surface area per ambient particle
	minParticles      = 60
	maxParticles      = 180
	spawnDepth        = 20  // particles spawn up to this far below the bottom edge
	swayDamping       = 0.1 // sway contribution per frame
	fuzzCircles       = 3   // extra jittered circles drawn per particle
	fuzzSpread        = 0.4 // jitter range relative to size
	fuzzAlpha         = 0.6 // relative opacity of the jittered circles
)

// Particle is one ambient vapor particle.
type Particle struct {
	X, Y          float64
	Size          float64
	SpeedX        float64
	SpeedY        float64
	Color         color.NRGBA
	Alpha         float64
	AlphaSpeed    float64
	Growth        float64
	MaxSize       float64
	SwayAmplitude float64
	SwayFrequency float64
	SwayOffset    float64
}

// Options configure an effect.
type Options struct {
	// Rand drives spawning and motion. Defaults to NewRand(Seed).
	Rand Rand

	// Jitter drives the cosmetic fuzz of rendered circles, so rendering never
	// perturbs the simulation. Defaults to NewRand(Seed + 1).
	Jitter Rand

	Seed    uint64
	Palette []color.NRGBA
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = NewRand(o.Seed)
	}
	if o.Jitter == nil {
		o.Jitter = NewRand(o.Seed + 1)
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// ParticleCount is the pool size for a w×h surface.
func ParticleCount(w, h int) int {
	n := int(math.Floor(float64(w) * float64(h) / pixelsPerParticle))
	return min(max(n, minParticles), maxParticles)
}

// Field is the ambient vapor effect. Its pool size is fixed at initialization;
// faded or escaped particles are recycled in place.
type Field struct {
	opts   Options
	logger *slog.Logger
	sched  *scheduler.Scheduler

	mu        sync.Mutex
	surface   ports.Surface
	particles []Particle
	w, h      int
	tok       *scheduler.Token
	detached  bool
	disposed  bool
}

// Initialize sizes surface to w×h and fills the particle pool.
func Initialize(host ports.FrameHost, surface ports.Surface, w, h int, opts Options) (*Field, error) {
	if surface == nil {
		return nil, domain.NewRenderSurfaceError("ambient", "initialize", "no surface", domain.ErrSurfaceUnavailable)
	}
	if w <= 0 || h <= 0 {
		return nil, domain.NewValidationError("bounds", [2]int{w, h}, "width and height must be positive")
	}
	if host == nil {
		return nil, domain.NewValidationError("host", nil, "frame host cannot be nil")
	}

	opts = opts.withDefaults()
	f := &Field{
		opts:    opts,
		logger:  opts.Logger,
		sched:   scheduler.New(host, "ambient", opts.Logger),
		surface: surface,
		w:       w,
		h:       h,
	}

	surface.Resize(w, h)
	surface.OnResize(f.onResize)

	f.particles = make([]Particle, ParticleCount(w, h))
	for i := range f.particles {
		f.particles[i] = f.spawn(true)
	}

	f.logger.Debug("ambient field initialized",
		slog.Int("particles", len(f.particles)),
		slog.Int("width", w),
		slog.Int("height", h))
	return f, nil
}

// spawn creates a particle just below the bottom edge. Initial particles are
// larger and more transparent than recycled ones.
func (f *Field) spawn(initial bool) Particle {
	r := f.opts.Rand
	p := Particle{
		X: r.Float64() * float64(f.w),
		Y: float64(f.h) + r.Float64()*spawnDepth,
	}
	if initial {
		p.Size = r.Float64()*8 + 3
	} else {
		p.Size = r.Float64()*5 + 2
	}
	p.SpeedX = (r.Float64() - 0.5) * 0.5
	p.SpeedY = -r.Float64()*0.8 - 0.5
	p.Color = pick(r, f.opts.Palette)
	if initial {
		p.Alpha = r.Float64()*0.5 + 0.1
	} else {
		p.Alpha = r.Float64()*0.5 + 0.2
	}
	p.AlphaSpeed = r.Float64()*0.005 + 0.002
	p.Growth = r.Float64()*0.03 + 0.01
	p.MaxSize = r.Float64()*15 + 10
	p.SwayAmplitude = r.Float64()*2 + 1
	p.SwayFrequency = r.Float64()*0.05 + 0.01
	p.SwayOffset = r.Float64() * 2 * math.Pi

	p.Size = min(p.Size, p.MaxSize)
	return p
}

func (f *Field) onResize(w, h int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detached || f.disposed {
		return
	}
	f.w, f.h = w, h
}

// Start begins animating on the frame host.
func (f *Field) Start() error {
	f.mu.Lock()
	if f.disposed || f.detached {
		f.mu.Unlock()
		return domain.ErrEffectDisposed
	}
	f.mu.Unlock()

	tok, err := f.sched.Start(f.step)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.tok = tok
	f.mu.Unlock()
	return nil
}

func (f *Field) step(frame int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed || f.detached {
		return false
	}
	f.tick(frame + 1)
	f.render()
	return true
}

// Resize rescales the surface. Particles are neither respawned nor moved.
func (f *Field) Resize(w, h int) {
	f.mu.Lock()
	surface := f.surface
	gone := f.disposed || f.detached
	f.mu.Unlock()

	if gone || w <= 0 || h <= 0 {
		return
	}
	surface.Resize(w, h)
}

// Tick advances every particle by one frame.
func (f *Field) Tick(frame int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tick(frame)
}

func (f *Field) tick(frame int) {
	for i := range f.particles {
		p := &f.particles[i]

		p.X += p.SpeedX + math.Sin(float64(frame)*p.SwayFrequency+p.SwayOffset)*p.SwayAmplitude*swayDamping
		p.Y += p.SpeedY

		if p.Size < p.MaxSize {
			p.Size += p.Growth
		} else {
			p.Alpha -= p.AlphaSpeed * 2
		}

		if p.Y < -p.Size*2 || p.Alpha <= 0 {
			*p = f.spawn(false)
		}
	}
}

// Render draws the current particles and presents the frame.
func (f *Field) Render() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disposed || f.detached {
		return
	}
	f.render()
}

func (f *Field) render() {
	s := f.surface
	j := f.opts.Jitter

	s.Clear()
	for _, p := range f.particles {
		s.FillCircle(p.X, p.Y, p.Size, p.Color, p.Alpha)

		spread := p.Size * fuzzSpread
		for range fuzzCircles {
			dx := (j.Float64() - 0.5) * spread
			dy := (j.Float64() - 0.5) * spread
			r := p.Size * (0.7 + j.Float64()*0.3)
			s.FillCircle(p.X+dx, p.Y+dy, r, p.Color, p.Alpha*fuzzAlpha)
		}
	}
	s.Present()
}

// Particles returns a copy of the pool.
func (f *Field) Particles() []Particle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Particle(nil), f.particles...)
}

// Len returns the pool size.
func (f *Field) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.particles)
}

// Bounds returns the field's current width and height.
func (f *Field) Bounds() (w, h int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w, f.h
}

// Running reports whether the animation loop is active.
func (f *Field) Running() bool {
	f.mu.Lock()
	tok := f.tok
	f.mu.Unlock()
	return f.sched.IsActive(tok)
}

// Detach stops the field and hands its surface, plus a snapshot of the last
// frame, to the caller. The surface is not released.
func (f *Field) Detach() (ports.Surface, ports.Snapshot, error) {
	f.stopLoop()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed || f.detached {
		return nil, nil, domain.ErrEffectDisposed
	}
	f.detached = true
	surface := f.surface
	f.surface = nil
	return surface, surface.Snapshot(), nil
}

// Dispose stops the field and releases its surface. Calling it again, or after
// Detach, does nothing. A failed release is returned as a *domain.TeardownWarning.
func (f *Field) Dispose() error {
	f.stopLoop()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.disposed {
		return nil
	}
	f.disposed = true
	if f.detached {
		return nil
	}

	surface := f.surface
	f.surface = nil
	if err := surface.Release(); err != nil && !errors.Is(err, domain.ErrSurfaceReleased) {
		warn := domain.NewTeardownWarning("ambient", "release-surface", err)
		f.logger.Warn("ambient teardown", slog.Any("error", warn))
		return warn
	}
	return nil
}

// stopLoop cancels the scheduler and waits for an in-flight tick.
// It must run without f.mu held.
func (f *Field) stopLoop() {
	f.mu.Lock()
	tok := f.tok
	f.mu.Unlock()
	f.sched.Cancel(tok)
}
