package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/adapter/audio/microphone"
	"github.com/tejashwikalptaru/vaporfx/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/vaporfx/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/vaporfx/internal/capture"
	"github.com/tejashwikalptaru/vaporfx/internal/particles"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
	"github.com/tejashwikalptaru/vaporfx/internal/service"
	"github.com/tejashwikalptaru/vaporfx/internal/visualizer"
)

// Services bundles the effect and capture services on one bus and frame host.
// Both the desktop shell and the headless commands are built on it.
type Services struct {
	Bus     ports.EventBus
	Effects *service.EffectsService
	Capture *service.CaptureService

	logger *slog.Logger
	once   sync.Once
	err    error
}

// NewServices wires the services for cfg. Frames come from host.
func NewServices(cfg Config, log *slog.Logger, host ports.FrameHost) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	waveColor, multicolor, err := cfg.Wave()
	if err != nil {
		return nil, err
	}

	bus := eventbus.NewSyncEventBus(log.With(slog.String("component", "eventbus")))

	manager := capture.NewManager(NewAudioProvider(cfg, log), capture.Options{
		SampleRate: cfg.SampleRate,
		FFTSize:    cfg.FFTSize,
		Logger:     log.With(slog.String("component", "capture")),
	})

	effects := service.NewEffectsService(
		log.With(slog.String("service", "effects")),
		bus,
		host,
		particles.Options{Seed: cfg.Seed},
	)

	captureService := service.NewCaptureService(
		log.With(slog.String("service", "capture")),
		bus,
		manager,
		host,
		visualizer.Options{
			WaveColor:  waveColor,
			Multicolor: multicolor,
			FPS:        cfg.FrameRate,
		},
		cfg.FrameRate,
	)

	return &Services{
		Bus:     bus,
		Effects: effects,
		Capture: captureService,
		logger:  log,
	}, nil
}

// NewAudioProvider returns the synthetic tone provider or the real microphone.
func NewAudioProvider(cfg Config, log *slog.Logger) ports.AudioDeviceProvider {
	if cfg.UseMockAudio {
		provider := mock.NewProvider()
		provider.SetLogger(log.With(slog.String("provider", "mock")))
		return provider
	}
	return microphone.NewProvider(log.With(slog.String("provider", "microphone")))
}

// Shutdown closes any capture session, stops every effect and closes the bus.
// Later calls return the first result.
func (s *Services) Shutdown() error {
	s.once.Do(func() {
		s.err = errors.Join(
			s.Capture.Shutdown(),
			s.Effects.Shutdown(),
			s.Bus.Close(),
		)
		if s.err != nil {
			s.logger.Warn("services shutdown", slog.Any("error", s.err))
		}
	})
	return s.err
}
