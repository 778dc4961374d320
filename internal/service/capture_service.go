package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/capture"
	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/dsp"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
	"github.com/tejashwikalptaru/vaporfx/internal/visualizer"
)

// CaptureService opens and closes the microphone for recording or preview,
// streams the live level, and drives the spectrum visualizer.
//
// Record and Preview are mutually exclusive. Starting a recording closes an open
// preview first; starting a preview while recording fails with domain.ErrCaptureBusy.
// Every mode change closes the old session before opening the new one.
//
// Thread-safety: all methods may be called from any goroutine, but not from
// inside an event handler running on the level loop (capture.level).
type CaptureService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	bus     ports.EventBus
	manager *capture.Manager
	viz     *visualizer.Visualizer
	levels  *scheduler.Scheduler

	// mu serializes mode changes
	mu       sync.Mutex
	levelTok *scheduler.Token

	// levelMu guards the smoothed level; the level loop only takes this lock
	levelMu  sync.Mutex
	smoother *dsp.Smoother
	level    float64
}

// NewCaptureService creates a capture service. The level loop and visualizer
// run on host; fps steps the level spring.
func NewCaptureService(
	logger *slog.Logger,
	bus ports.EventBus,
	manager *capture.Manager,
	host ports.FrameHost,
	vizOpts visualizer.Options,
	fps int,
) *CaptureService {
	vizOpts.Logger = logger
	if vizOpts.FPS <= 0 {
		vizOpts.FPS = fps
	}
	service := &CaptureService{
		logger:   logger,
		bus:      bus,
		manager:  manager,
		viz:      visualizer.New(host, vizOpts),
		levels:   scheduler.New(host, "capture-level", logger),
		smoother: dsp.NewSmoother(fps),
	}

	logger.Debug("capture service initialized")
	return service
}

// StartCapture opens the microphone for intent. Starting the intent that is
// already open does nothing.
//
// On failure a capture.failed event carrying the user-facing message is
// published, the error is returned, and the service is left idle.
func (s *CaptureService) StartCapture(ctx context.Context, intent domain.CaptureIntent) error {
	if intent != domain.IntentRecord && intent != domain.IntentPreview {
		return domain.NewValidationError("intent", intent, "must be record or preview")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.manager.Intent()
	switch {
	case current == intent:
		return nil
	case current == domain.IntentRecord && intent == domain.IntentPreview:
		s.logger.Debug("preview ignored while recording")
		return domain.NewAcquisitionError(intent, "open", "recording in progress", domain.ErrCaptureBusy)
	case current != domain.IntentNone:
		if err := s.stopLocked(); err != nil {
			s.logger.Warn("closing previous capture", slog.Any("error", err))
		}
	}

	session, err := s.manager.Open(ctx, intent)
	if err != nil {
		message := "Error setting up audio capture. Please try again."
		var acq *domain.AcquisitionError
		if errors.As(err, &acq) {
			message = acq.UserMessage()
		}
		s.bus.Publish(domain.NewCaptureFailedEvent(intent, message, err))
		return err
	}

	s.resetLevel()
	tok, err := s.levels.Start(func(int) bool { return s.levelStep(session) })
	if err != nil {
		_, _ = s.manager.Close()
		s.bus.Publish(domain.NewCaptureFailedEvent(intent, "Error setting up audio capture. Please try again.", err))
		return err
	}
	s.levelTok = tok

	s.logger.Info("capture started", slog.String("intent", intent.String()))
	s.bus.Publish(domain.NewCaptureOpenedEvent(intent))
	return nil
}

// levelStep reads and smooths the level once per frame.
func (s *CaptureService) levelStep(session *capture.Session) bool {
	if session.Closed() {
		return false
	}
	raw := session.ReadLevel()

	s.levelMu.Lock()
	s.level = s.smoother.Update(raw)
	level := s.level
	s.levelMu.Unlock()

	if s.bus.HasSubscribers(domain.EventAudioLevel) {
		s.bus.Publish(domain.NewAudioLevelEvent(session.Intent(), level, raw))
	}
	return true
}

// StopCapture closes the open session. Stopping a recording publishes the
// finished clip as a voice.clip_completed event. It fails with
// domain.ErrNoActiveCapture when nothing is open; teardown warnings are returned
// but the session is closed regardless.
func (s *CaptureService) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manager.Intent() == domain.IntentNone {
		return domain.ErrNoActiveCapture
	}
	return s.stopLocked()
}

// stopLocked detaches every reader before closing the session. Callers hold s.mu.
func (s *CaptureService) stopLocked() error {
	s.viz.Detach()
	s.levels.Cancel(s.levelTok)
	s.levelTok = nil

	session, err := s.manager.Close()
	if session == nil {
		return err
	}
	intent := session.Intent()

	if rec := session.Recorder(); rec != nil {
		clip, cerr := rec.Finish()
		switch {
		case cerr == nil:
			s.logger.Info("voice clip completed",
				slog.Duration("duration", clip.Duration),
				slog.Int("bytes", len(clip.Data)))
			s.bus.Publish(domain.NewVoiceClipCompletedEvent(clip))
		case errors.Is(cerr, domain.ErrEmptyClip):
			s.logger.Info("recording stopped without audio")
		default:
			s.logger.Error("voice clip encoding failed", slog.Any("error", cerr))
		}
	}

	s.resetLevel()
	s.logger.Info("capture stopped", slog.String("intent", intent.String()))
	s.bus.Publish(domain.NewCaptureClosedEvent(intent))
	return err
}

func (s *CaptureService) resetLevel() {
	s.levelMu.Lock()
	defer s.levelMu.Unlock()
	s.smoother.Reset()
	s.level = 0
}

// Mode returns the intent of the open session, or domain.IntentNone.
func (s *CaptureService) Mode() domain.CaptureIntent {
	return s.manager.Intent()
}

// Level returns the smoothed live level in [0,1].
func (s *CaptureService) Level() float64 {
	s.levelMu.Lock()
	defer s.levelMu.Unlock()
	return s.level
}

// AttachVisualizer starts drawing the open session onto surface. It fails with
// domain.ErrNoActiveCapture when nothing is open, and with domain.ErrAlreadyAttached
// until DetachVisualizer is called. The visualizer is detached automatically when
// the session closes; surface stays owned by the caller.
func (s *CaptureService) AttachVisualizer(surface ports.Surface, style domain.VisualizerStyle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.manager.Current()
	if session == nil {
		return domain.ErrNoActiveCapture
	}
	if err := s.viz.Attach(session, surface, style); err != nil {
		if !errors.Is(err, domain.ErrAlreadyAttached) {
			s.bus.Publish(domain.NewEffectErrorEvent("visualizer", err))
		}
		return err
	}
	return nil
}

// DetachVisualizer stops the visualizer. The session keeps running.
func (s *CaptureService) DetachVisualizer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viz.Detach()
}

// VisualizerAttached reports whether the visualizer is drawing.
func (s *CaptureService) VisualizerAttached() bool {
	return s.viz.Attached()
}

// Shutdown closes any open session.
func (s *CaptureService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manager.Intent() == domain.IntentNone {
		s.viz.Detach()
		return nil
	}
	return s.stopLocked()
}
