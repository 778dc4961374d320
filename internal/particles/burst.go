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
	BurstParticles     = 100   // particles spawned per burst
	BurstFadeStep      = 0.015 // global alpha lost per tick
	BurstSnapshotTicks = 30    // the pre-burst frame is shown while frame < this
	BurstFrameCap      = 120   // hard bound on burst length

	burstUpperBand   = 0.8  // particles spawn in the upper 80% of the surface
	burstLift        = 0.05 // speedY change per tick
	burstShrink      = 0.97
	burstFade        = 0.99
	burstMinSize     = 0.5
	burstMinAlpha    = 0.05
	burstGradientTop = 0.8 // opacity at the centre of a particle's gradient
)

// BurstParticle is one particle of an evaporation burst.
type BurstParticle struct {
	X, Y          float64
	Size          float64
	SpeedX        float64
	SpeedY        float64
	Color         color.NRGBA
	Alpha         float64
	Rotation      float64
	RotationSpeed float64
}

// BurstOptions configure a burst.
type BurstOptions struct {
	Options

	// OnDone is called once, after the surface was released.
	OnDone func(domain.BurstResult)
}

// Burst is a one-shot evaporation effect. It owns the surface it was given
// and releases it when it ends.
type Burst struct {
	opts   BurstOptions
	logger *slog.Logger
	sched  *scheduler.Scheduler
	tok    *scheduler.Token

	mu          sync.Mutex
	surface     ports.Surface
	snapshot    ports.Snapshot
	particles   []BurstParticle
	frame       int
	globalAlpha float64
	reason      domain.BurstEndReason
	done        bool
}

// Trigger spawns the burst particles on surface and starts animating.
// snapshot may be nil when there is no pre-burst frame to fade out.
func Trigger(host ports.FrameHost, surface ports.Surface, snapshot ports.Snapshot, opts BurstOptions) (*Burst, error) {
	if surface == nil {
		return nil, domain.NewRenderSurfaceError("evaporation", "trigger", "no surface", domain.ErrSurfaceUnavailable)
	}
	if host == nil {
		return nil, domain.NewValidationError("host", nil, "frame host cannot be nil")
	}

	opts.Options = opts.withDefaults()
	b := &Burst{
		opts:        opts,
		logger:      opts.Logger,
		sched:       scheduler.New(host, "evaporation", opts.Logger),
		surface:     surface,
		snapshot:    snapshot,
		globalAlpha: 1,
	}

	w, h := surface.Size()
	r := opts.Rand
	b.particles = make([]BurstParticle, BurstParticles)
	for i := range b.particles {
		b.particles[i] = BurstParticle{
			X:             r.Float64() * float64(w),
			Y:             r.Float64() * float64(h) * burstUpperBand,
			Size:          r.Float64()*15 + 5,
			SpeedX:        (r.Float64() - 0.5) * 2,
			SpeedY:        -r.Float64()*3 - 2,
			Color:         pick(r, opts.Palette),
			Alpha:         r.Float64()*0.7 + 0.3,
			Rotation:      r.Float64() * 2 * math.Pi,
			RotationSpeed: (r.Float64() - 0.5) * 0.1,
		}
	}

	tok, err := b.sched.Start(b.step, scheduler.WithOnStop(b.teardown))
	if err != nil {
		return nil, err
	}
	b.tok = tok
	return b, nil
}

func (b *Burst) step(int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame++
	b.globalAlpha -= BurstFadeStep

	switch {
	case b.globalAlpha <= 0:
		b.reason = domain.BurstFaded
		return false
	case b.frame > BurstFrameCap:
		b.reason = domain.BurstFrameCap
		return false
	}

	s := b.surface
	s.Clear()
	if b.frame < BurstSnapshotTicks && b.snapshot != nil {
		s.Restore(b.snapshot, max(0, b.globalAlpha*2-1))
	}

	live := b.particles[:0]
	for _, p := range b.particles {
		p.X += p.SpeedX
		p.Y += p.SpeedY
		p.SpeedY -= burstLift
		p.Size *= burstShrink
		p.Alpha *= burstFade
		p.Rotation += p.RotationSpeed

		b.draw(p)

		if p.Size >= burstMinSize && p.Alpha >= burstMinAlpha {
			live = append(live, p)
		}
	}
	b.particles = live

	s.Present()
	return true
}

func (b *Burst) draw(p BurstParticle) {
	s := b.surface
	j := b.opts.Jitter
	alpha := p.Alpha * b.globalAlpha

	inner := p.Color
	inner.A = alphaByte(burstGradientTop)
	s.FillGradientCircle(p.X, p.Y, p.Size, inner, alpha)

	sin, cos := math.Sincos(p.Rotation)
	spread := p.Size * fuzzSpread
	for range fuzzCircles {
		dx := (j.Float64() - 0.5) * spread
		dy := (j.Float64() - 0.5) * spread
		r := p.Size * (0.6 + j.Float64()*0.4)
		s.FillCircle(p.X+dx*cos-dy*sin, p.Y+dx*sin+dy*cos, r, p.Color, fuzzAlpha*alpha)
	}
}

// teardown releases the surface and reports the result. The scheduler calls it
// exactly once, after the final tick.
func (b *Burst) teardown(reason scheduler.StopReason) {
	b.mu.Lock()
	if reason != scheduler.StopCompleted {
		b.reason = domain.BurstCancelled
	}
	result := domain.BurstResult{Frames: b.frame, Reason: b.reason}
	surface := b.surface
	b.surface = nil
	b.snapshot = nil
	b.particles = nil
	b.done = true
	b.mu.Unlock()

	if err := surface.Release(); err != nil && !errors.Is(err, domain.ErrSurfaceReleased) {
		b.logger.Warn("evaporation teardown",
			slog.Any("error", domain.NewTeardownWarning("evaporation", "release-surface", err)))
	}

	b.logger.Debug("evaporation finished",
		slog.Int("frames", result.Frames),
		slog.String("reason", string(result.Reason)))

	if b.opts.OnDone != nil {
		b.opts.OnDone(result)
	}
}

// Cancel stops the burst immediately and releases its surface.
// It is a no-op once the burst has ended.
func (b *Burst) Cancel() {
	b.sched.Cancel(b.tok)
}

// Done is closed after the burst has ended and OnDone returned.
func (b *Burst) Done() <-chan struct{} {
	return b.tok.Done()
}

// Finished reports whether the burst has ended.
func (b *Burst) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Frames returns the number of ticks run so far.
func (b *Burst) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame
}

// Live returns the number of particles still in the active set.
func (b *Burst) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.particles)
}

// GlobalAlpha returns the current burst-wide fade multiplier.
func (b *Burst) GlobalAlpha() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.globalAlpha
}

// Particles returns a copy of the active set.
func (b *Burst) Particles() []BurstParticle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BurstParticle(nil), b.particles...)
}
