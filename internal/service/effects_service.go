// Package service orchestrates the vapor effects and microphone capture for the shell.
package service

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/particles"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// EffectsService runs the ambient vapor field and evaporation bursts.
//
// The field and a burst are independent effects: each has its own scheduler and
// surface, and a failure in one is reported through an effect.error event without
// touching the other. All operations are thread-safe.
type EffectsService struct {
	// Dependencies (injected)
	logger *slog.Logger
	bus    ports.EventBus
	host   ports.FrameHost
	opts   particles.Options

	// State
	mu       sync.Mutex
	field    *particles.Field
	burst    *particles.Burst
	burstGen int // identifies the current burst in its OnDone callback
	bursts   int // bursts triggered so far, used to vary their seeds
}

// NewEffectsService creates an effects service drawing on host's frames.
func NewEffectsService(
	logger *slog.Logger,
	bus ports.EventBus,
	host ports.FrameHost,
	opts particles.Options,
) *EffectsService {
	opts.Logger = logger
	service := &EffectsService{
		logger: logger,
		bus:    bus,
		host:   host,
		opts:   opts,
	}

	logger.Debug("effects service initialized")
	return service
}

// StartAmbient starts the vapor field on surface, sized to the surface's current bounds.
func (s *EffectsService) StartAmbient(surface ports.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.field != nil {
		return domain.ErrAmbientRunning
	}
	if surface == nil {
		err := domain.NewRenderSurfaceError("ambient", "start", "no surface", domain.ErrSurfaceUnavailable)
		s.publishError("ambient", err)
		return err
	}

	w, h := surface.Size()
	field, err := particles.Initialize(s.host, surface, w, h, s.opts)
	if err != nil {
		s.publishError("ambient", err)
		return err
	}
	if err := field.Start(); err != nil {
		if derr := field.Dispose(); derr != nil {
			s.logger.Warn("ambient cleanup failed", slog.Any("error", derr))
		}
		s.publishError("ambient", err)
		return err
	}

	s.field = field
	s.logger.Info("ambient field started",
		slog.Int("particles", field.Len()),
		slog.Int("width", w),
		slog.Int("height", h))
	s.bus.Publish(domain.NewAmbientStartedEvent(field.Len(), w, h))
	return nil
}

// StopAmbient stops the vapor field and releases its surface.
// A failed release is returned as a *domain.TeardownWarning; the field is stopped regardless.
func (s *EffectsService) StopAmbient() error {
	s.mu.Lock()
	field := s.field
	s.field = nil
	s.mu.Unlock()

	if field == nil {
		return domain.ErrAmbientNotRunning
	}

	err := field.Dispose()
	s.logger.Info("ambient field stopped")
	s.bus.Publish(domain.NewAmbientStoppedEvent())
	return err
}

// IsAmbientRunning reports whether the vapor field is animating.
func (s *EffectsService) IsAmbientRunning() bool {
	s.mu.Lock()
	field := s.field
	s.mu.Unlock()
	return field != nil && field.Running()
}

// TriggerEvaporation plays a burst.
//
// With a nil surface the burst takes over the ambient field's surface: the field
// is stopped, and its last frame fades out under the burst. Otherwise the burst
// plays on surface and the ambient field is left alone. A burst still playing
// is cancelled first. The burst releases its surface when it ends.
func (s *EffectsService) TriggerEvaporation(surface ports.Surface) error {
	s.mu.Lock()
	// Cancel runs the burst's OnDone, which takes mu. A concurrent trigger can
	// install another burst while mu is released, so re-check until none is left.
	for s.burst != nil {
		prev := s.burst
		s.burst = nil
		s.mu.Unlock()
		prev.Cancel()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	var snapshot ports.Snapshot
	switch {
	case surface != nil:
		snapshot = surface.Snapshot()
	case s.field != nil:
		var err error
		surface, snapshot, err = s.field.Detach()
		s.field = nil
		if err != nil {
			s.publishError("evaporation", err)
			return err
		}
	default:
		return domain.ErrAmbientNotRunning
	}

	s.burstGen++
	gen := s.burstGen
	opts := s.opts
	opts.Seed += 2 + 2*uint64(s.bursts)
	opts.Rand, opts.Jitter = nil, nil
	s.bursts++

	burst, err := particles.Trigger(s.host, surface, snapshot, particles.BurstOptions{
		Options: opts,
		OnDone:  func(r domain.BurstResult) { s.onBurstDone(gen, r) },
	})
	if err != nil {
		if rerr := surface.Release(); rerr != nil {
			s.logger.Warn("evaporation cleanup failed",
				slog.Any("error", domain.NewTeardownWarning("evaporation", "release-surface", rerr)))
		}
		s.publishError("evaporation", err)
		return err
	}

	s.burst = burst
	s.logger.Debug("evaporation triggered", slog.Int("burst", gen))
	s.bus.Publish(domain.NewEvaporationStartedEvent(particles.BurstParticles))
	return nil
}

// onBurstDone runs on the burst's final tick, or inside Cancel.
// It must not call back into the burst.
func (s *EffectsService) onBurstDone(gen int, result domain.BurstResult) {
	s.mu.Lock()
	if s.burstGen == gen {
		s.burst = nil
	}
	s.mu.Unlock()

	s.logger.Info("evaporation completed",
		slog.Int("frames", result.Frames),
		slog.String("reason", string(result.Reason)))
	s.bus.Publish(domain.NewEvaporationCompletedEvent(result))
}

// IsEvaporating reports whether a burst is playing.
func (s *EffectsService) IsEvaporating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.burst != nil
}

// Shutdown cancels any burst and stops the ambient field.
func (s *EffectsService) Shutdown() error {
	s.mu.Lock()
	burst := s.burst
	s.burst = nil
	s.mu.Unlock()

	if burst != nil {
		burst.Cancel()
	}

	err := s.StopAmbient()
	if errors.Is(err, domain.ErrAmbientNotRunning) {
		return nil
	}
	return err
}

func (s *EffectsService) publishError(effect string, err error) {
	s.logger.Error("effect failed", slog.String("effect", effect), slog.Any("error", err))
	s.bus.Publish(domain.NewEffectErrorEvent(effect, err))
}
