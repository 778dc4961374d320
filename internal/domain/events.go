// Package domain defines events for the event-driven architecture.
// Services publish these; the UI layer and logging subscribe.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Ambient effect events
	EventAmbientStarted       EventType = "ambient.started"
	EventAmbientStopped       EventType = "ambient.stopped"
	EventEvaporationStarted   EventType = "evaporation.started"
	EventEvaporationCompleted EventType = "evaporation.completed"
	EventEffectError          EventType = "effect.error"

	// Capture events
	EventCaptureOpened EventType = "capture.opened"
	EventCaptureClosed EventType = "capture.closed"
	EventCaptureFailed EventType = "capture.failed"
	EventAudioLevel    EventType = "capture.level"

	// Output for the chat dispatch collaborator
	EventVoiceClipCompleted EventType = "voice.clip_completed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// AmbientStartedEvent is published when the vapor field starts.
type AmbientStartedEvent struct {
	baseEvent
	Particles int
	Width     int
	Height    int
}

// Type returns the event type.
func (e AmbientStartedEvent) Type() EventType {
	return EventAmbientStarted
}

// NewAmbientStartedEvent creates a new AmbientStartedEvent.
func NewAmbientStartedEvent(particles, width, height int) AmbientStartedEvent {
	return AmbientStartedEvent{
		baseEvent: newBaseEvent(),
		Particles: particles,
		Width:     width,
		Height:    height,
	}
}

// AmbientStoppedEvent is published when the vapor field is disposed without a burst.
type AmbientStoppedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e AmbientStoppedEvent) Type() EventType {
	return EventAmbientStopped
}

// NewAmbientStoppedEvent creates a new AmbientStoppedEvent.
func NewAmbientStoppedEvent() AmbientStoppedEvent {
	return AmbientStoppedEvent{baseEvent: newBaseEvent()}
}

// EvaporationStartedEvent is published when a burst is triggered.
type EvaporationStartedEvent struct {
	baseEvent
	Particles int
}

// Type returns the event type.
func (e EvaporationStartedEvent) Type() EventType {
	return EventEvaporationStarted
}

// NewEvaporationStartedEvent creates a new EvaporationStartedEvent.
func NewEvaporationStartedEvent(particles int) EvaporationStartedEvent {
	return EvaporationStartedEvent{
		baseEvent: newBaseEvent(),
		Particles: particles,
	}
}

// EvaporationCompletedEvent is published when a burst has torn down.
type EvaporationCompletedEvent struct {
	baseEvent
	Result BurstResult
}

// Type returns the event type.
func (e EvaporationCompletedEvent) Type() EventType {
	return EventEvaporationCompleted
}

// NewEvaporationCompletedEvent creates a new EvaporationCompletedEvent.
func NewEvaporationCompletedEvent(result BurstResult) EvaporationCompletedEvent {
	return EvaporationCompletedEvent{
		baseEvent: newBaseEvent(),
		Result:    result,
	}
}

// EffectErrorEvent is published when an effect aborts.
type EffectErrorEvent struct {
	baseEvent
	Effect string
	Error  error
}

// Type returns the event type.
func (e EffectErrorEvent) Type() EventType {
	return EventEffectError
}

// NewEffectErrorEvent creates a new EffectErrorEvent.
func NewEffectErrorEvent(effect string, err error) EffectErrorEvent {
	return EffectErrorEvent{
		baseEvent: newBaseEvent(),
		Effect:    effect,
		Error:     err,
	}
}

// CaptureOpenedEvent is published after a session opened successfully.
type CaptureOpenedEvent struct {
	baseEvent
	Intent CaptureIntent
}

// Type returns the event type.
func (e CaptureOpenedEvent) Type() EventType {
	return EventCaptureOpened
}

// NewCaptureOpenedEvent creates a new CaptureOpenedEvent.
func NewCaptureOpenedEvent(intent CaptureIntent) CaptureOpenedEvent {
	return CaptureOpenedEvent{
		baseEvent: newBaseEvent(),
		Intent:    intent,
	}
}

// CaptureClosedEvent is published after a session closed.
type CaptureClosedEvent struct {
	baseEvent
	Intent CaptureIntent
}

// Type returns the event type.
func (e CaptureClosedEvent) Type() EventType {
	return EventCaptureClosed
}

// NewCaptureClosedEvent creates a new CaptureClosedEvent.
func NewCaptureClosedEvent(intent CaptureIntent) CaptureClosedEvent {
	return CaptureClosedEvent{
		baseEvent: newBaseEvent(),
		Intent:    intent,
	}
}

// CaptureFailedEvent is published when a session could not be opened.
// Message is the single user-facing description of the failure.
type CaptureFailedEvent struct {
	baseEvent
	Intent  CaptureIntent
	Message string
	Error   error
}

// Type returns the event type.
func (e CaptureFailedEvent) Type() EventType {
	return EventCaptureFailed
}

// NewCaptureFailedEvent creates a new CaptureFailedEvent.
func NewCaptureFailedEvent(intent CaptureIntent, message string, err error) CaptureFailedEvent {
	return CaptureFailedEvent{
		baseEvent: newBaseEvent(),
		Intent:    intent,
		Message:   message,
		Error:     err,
	}
}

// AudioLevelEvent carries the live level scalar in [0,1].
type AudioLevelEvent struct {
	baseEvent
	Intent CaptureIntent
	Level  float64 // smoothed level
	Raw    float64 // instantaneous level
}

// Type returns the event type.
func (e AudioLevelEvent) Type() EventType {
	return EventAudioLevel
}

// NewAudioLevelEvent creates a new AudioLevelEvent.
func NewAudioLevelEvent(intent CaptureIntent, level, raw float64) AudioLevelEvent {
	return AudioLevelEvent{
		baseEvent: newBaseEvent(),
		Intent:    intent,
		Level:     level,
		Raw:       raw,
	}
}

// VoiceClipCompletedEvent hands a finished recording to the chat dispatch collaborator.
type VoiceClipCompletedEvent struct {
	baseEvent
	Clip VoiceClip
}

// Type returns the event type.
func (e VoiceClipCompletedEvent) Type() EventType {
	return EventVoiceClipCompleted
}

// NewVoiceClipCompletedEvent creates a new VoiceClipCompletedEvent.
func NewVoiceClipCompletedEvent(clip VoiceClip) VoiceClipCompletedEvent {
	return VoiceClipCompletedEvent{
		baseEvent: newBaseEvent(),
		Clip:      clip,
	}
}
