// Package fyne provides Fyne UI adapter implementations.
// This package implements the desktop shell around the vapor effects and capture services.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	fyneapp "fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
	"github.com/tejashwikalptaru/vaporfx/internal/service"
)

// UIView defines the interface for UI updates.
// The actual UI implementation (MainWindow) must implement this interface.
type UIView interface {
	// Capture state updates
	SetRecording(recording bool)
	SetPreviewing(previewing bool)
	SetLevel(level float64)
	SetClipAvailable(available bool)

	// Effect state updates
	SetAmbient(running bool)
	SetStatus(text string)

	// Drawing targets
	AmbientSurface() ports.Surface
	BurstSurface() ports.Surface
	VisualizerSurface() ports.Surface
	ClearVisualizer()

	// Notifications
	ShowNotification(title, message string)
}

// Presenter coordinates between the services and the UI (MVP).
//
// Responsibilities:
// - Subscribe to events from the event bus
// - Map domain events to UI updates on the Fyne thread
// - Translate UI commands to service method calls
//
// Event handlers may run inside a service call, so they only touch the view and
// presenter state; anything that calls back into a service is deferred through do.
type Presenter struct {
	// Dependencies
	logger *slog.Logger

	// Services (injected)
	effects *service.EffectsService
	capture *service.CaptureService

	// Event bus for subscriptions
	EventBus ports.EventBus

	// UI view
	view UIView

	// do runs fn on the UI thread
	do func(fn func())

	// Presentation state
	mu            sync.Mutex
	style         domain.VisualizerStyle // empty picks the default for the intent
	lastClip      *domain.VoiceClip
	ambientWanted bool
	subscriptions []domain.SubscriptionID

	shutdownOnce sync.Once
}

// NewPresenter creates a new presenter and subscribes it to the bus.
func NewPresenter(
	logger *slog.Logger,
	effects *service.EffectsService,
	capture *service.CaptureService,
	eventBus ports.EventBus,
	view UIView,
) *Presenter {
	p := &Presenter{
		logger:   logger,
		effects:  effects,
		capture:  capture,
		EventBus: eventBus,
		view:     view,
		do:       fyneapp.Do,
	}

	p.subscribeToEvents()
	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		// Effect events
		domain.EventAmbientStarted:       p.onAmbientStarted,
		domain.EventAmbientStopped:       p.onAmbientStopped,
		domain.EventEvaporationStarted:   p.onEvaporationStarted,
		domain.EventEvaporationCompleted: p.onEvaporationCompleted,
		domain.EventEffectError:          p.onEffectError,

		// Capture events
		domain.EventCaptureOpened:      p.onCaptureOpened,
		domain.EventCaptureClosed:      p.onCaptureClosed,
		domain.EventCaptureFailed:      p.onCaptureFailed,
		domain.EventAudioLevel:         p.onAudioLevel,
		domain.EventVoiceClipCompleted: p.onVoiceClipCompleted,
	}

	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.EventBus.Subscribe(eventType, handler))
	}
}

// Start begins the ambient vapor field.
func (p *Presenter) Start() {
	p.mu.Lock()
	p.ambientWanted = true
	p.mu.Unlock()

	if err := p.effects.StartAmbient(p.view.AmbientSurface()); err != nil {
		p.logger.Error("failed to start ambient field", slog.Any("error", err))
	}
}

// Event handlers

func (p *Presenter) onAmbientStarted(event domain.Event) {
	if _, ok := event.(domain.AmbientStartedEvent); !ok {
		return
	}
	p.do(func() { p.view.SetAmbient(true) })
}

func (p *Presenter) onAmbientStopped(domain.Event) {
	p.do(func() { p.view.SetAmbient(false) })
}

func (p *Presenter) onEvaporationStarted(domain.Event) {
	p.do(func() { p.view.SetStatus("Evaporating...") })
}

// onEvaporationCompleted brings the vapor back once a burst that replaced it is over.
func (p *Presenter) onEvaporationCompleted(event domain.Event) {
	e, ok := event.(domain.EvaporationCompletedEvent)
	if !ok {
		return
	}
	p.do(func() {
		p.view.SetStatus("")

		p.mu.Lock()
		wanted := p.ambientWanted
		p.mu.Unlock()

		if e.Result.Reason == domain.BurstCancelled || !wanted || p.effects.IsAmbientRunning() {
			return
		}
		if err := p.effects.StartAmbient(p.view.AmbientSurface()); err != nil {
			p.logger.Error("failed to restart ambient field", slog.Any("error", err))
		}
	})
}

func (p *Presenter) onEffectError(event domain.Event) {
	e, ok := event.(domain.EffectErrorEvent)
	if !ok {
		return
	}
	p.do(func() {
		p.view.ShowNotification("Effect Error", fmt.Sprintf("%s: %v", e.Effect, e.Error))
	})
}

func (p *Presenter) onCaptureOpened(event domain.Event) {
	e, ok := event.(domain.CaptureOpenedEvent)
	if !ok {
		return
	}
	p.do(func() {
		p.view.SetRecording(e.Intent == domain.IntentRecord)
		p.view.SetPreviewing(e.Intent == domain.IntentPreview)
		if e.Intent == domain.IntentRecord {
			p.view.SetStatus("Recording...")
		}
	})
}

func (p *Presenter) onCaptureClosed(domain.Event) {
	p.do(func() {
		p.view.SetRecording(false)
		p.view.SetPreviewing(false)
		p.view.SetLevel(0)
		p.view.ClearVisualizer()
		p.view.SetStatus("")
	})
}

func (p *Presenter) onCaptureFailed(event domain.Event) {
	e, ok := event.(domain.CaptureFailedEvent)
	if !ok {
		return
	}
	p.do(func() {
		p.view.ShowNotification("Microphone Error", e.Message)
	})
}

func (p *Presenter) onAudioLevel(event domain.Event) {
	e, ok := event.(domain.AudioLevelEvent)
	if !ok {
		return
	}
	p.do(func() { p.view.SetLevel(e.Level) })
}

func (p *Presenter) onVoiceClipCompleted(event domain.Event) {
	e, ok := event.(domain.VoiceClipCompletedEvent)
	if !ok {
		return
	}

	clip := e.Clip
	p.mu.Lock()
	p.lastClip = &clip
	p.mu.Unlock()

	p.do(func() {
		p.view.SetClipAvailable(true)
		p.view.SetStatus(fmt.Sprintf("Voice clip ready (%.1fs)", clip.Duration.Seconds()))
	})
}

// User command handlers

// OnRecordClicked starts a recording, or stops the one in progress.
func (p *Presenter) OnRecordClicked() {
	p.toggle(domain.IntentRecord)
}

// OnPreviewClicked starts or stops the microphone preview. It is ignored while recording.
func (p *Presenter) OnPreviewClicked() {
	p.toggle(domain.IntentPreview)
}

func (p *Presenter) toggle(intent domain.CaptureIntent) {
	if p.capture.Mode() == intent {
		if err := p.capture.StopCapture(); err != nil {
			p.logger.Warn("capture teardown", slog.Any("error", err))
		}
		return
	}

	if err := p.capture.StartCapture(context.Background(), intent); err != nil {
		if errors.Is(err, domain.ErrCaptureBusy) {
			p.logger.Debug("capture request ignored", slog.String("intent", intent.String()))
			return
		}
		// capture.failed already carried the message to the view
		p.logger.Error("failed to start capture",
			slog.String("intent", intent.String()),
			slog.Any("error", err))
		return
	}

	if err := p.capture.AttachVisualizer(p.view.VisualizerSurface(), p.styleFor(intent)); err != nil {
		p.logger.Error("failed to attach visualizer", slog.Any("error", err))
	}
}

// OnStyleSelected changes the visualizer style. An empty style restores the
// per-intent default. An open session switches immediately.
func (p *Presenter) OnStyleSelected(style domain.VisualizerStyle) {
	if style != "" && !style.Valid() {
		p.logger.Warn("unknown visualizer style", slog.String("style", string(style)))
		return
	}

	p.mu.Lock()
	p.style = style
	p.mu.Unlock()

	mode := p.capture.Mode()
	if mode == domain.IntentNone {
		return
	}
	p.capture.DetachVisualizer()
	p.view.ClearVisualizer()
	if err := p.capture.AttachVisualizer(p.view.VisualizerSurface(), p.styleFor(mode)); err != nil {
		p.logger.Error("failed to attach visualizer", slog.Any("error", err))
	}
}

// styleFor returns the selected style, or LED bars for preview and plain bars for recording.
func (p *Presenter) styleFor(intent domain.CaptureIntent) domain.VisualizerStyle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.style != "" {
		return p.style
	}
	if intent == domain.IntentRecord {
		return domain.StyleBars
	}
	return domain.StyleLEDBars
}

// OnEvaporateClicked plays an evaporation burst. With the vapor running the burst
// dissolves it; otherwise it plays on its own layer.
func (p *Presenter) OnEvaporateClicked() {
	var surface ports.Surface
	takeover := p.effects.IsAmbientRunning()
	if !takeover {
		surface = p.view.BurstSurface()
	}
	if err := p.effects.TriggerEvaporation(surface); err != nil {
		p.logger.Error("failed to trigger evaporation", slog.Any("error", err))
		return
	}
	if takeover {
		p.view.SetAmbient(false)
	}
}

// OnAmbientToggled starts or stops the vapor field.
func (p *Presenter) OnAmbientToggled(on bool) {
	p.mu.Lock()
	p.ambientWanted = on
	p.mu.Unlock()

	if on {
		if p.effects.IsAmbientRunning() {
			return
		}
		if err := p.effects.StartAmbient(p.view.AmbientSurface()); err != nil {
			p.logger.Error("failed to start ambient field", slog.Any("error", err))
		}
		return
	}

	if err := p.effects.StopAmbient(); err != nil && !errors.Is(err, domain.ErrAmbientNotRunning) {
		p.logger.Warn("ambient teardown", slog.Any("error", err))
	}
}

// LastClip returns the most recent voice clip, if any.
func (p *Presenter) LastClip() (domain.VoiceClip, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastClip == nil {
		return domain.VoiceClip{}, false
	}
	return *p.lastClip, true
}

// SaveClip writes the most recent voice clip to w.
func (p *Presenter) SaveClip(w io.Writer) error {
	clip, ok := p.LastClip()
	if !ok {
		return domain.ErrEmptyClip
	}
	if _, err := w.Write(clip.Data); err != nil {
		return fmt.Errorf("write voice clip: %w", err)
	}
	p.logger.Info("voice clip saved", slog.Int("bytes", len(clip.Data)))
	return nil
}

// Shutdown unsubscribes from the bus and stops every effect and session.
// It's safe to call multiple times.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		for _, id := range p.subscriptions {
			p.EventBus.Unsubscribe(id)
		}

		var errs []error
		errs = append(errs, p.capture.Shutdown(), p.effects.Shutdown())
		if err := errors.Join(errs...); err != nil {
			p.logger.Warn("presenter shutdown", slog.Any("error", err))
		}
		p.logger.Info("presenter shutdown complete")
	})
}
