// Package domain defines domain-specific errors.
// These errors describe effect and capture failures independently of any platform backend.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that effects and services can return.
var (
	// ErrPermissionDenied is returned by a device provider when microphone access is refused.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceNotFound is returned by a device provider when no capture device exists.
	ErrDeviceNotFound = errors.New("no capture device available")

	// ErrCaptureBusy is returned when a capture session is requested while another one is open.
	ErrCaptureBusy = errors.New("another capture session is open")

	// ErrSessionClosed is returned when reading from a closed capture session.
	ErrSessionClosed = errors.New("capture session closed")

	// ErrNoActiveCapture is returned when stopping capture with nothing open.
	ErrNoActiveCapture = errors.New("no active capture session")

	// ErrContextClosed is returned when building graph nodes on a closed audio context.
	ErrContextClosed = errors.New("audio context closed")

	// ErrSurfaceUnavailable is returned when an effect has no drawable surface.
	ErrSurfaceUnavailable = errors.New("drawable surface unavailable")

	// ErrSurfaceReleased is returned when releasing a surface twice.
	ErrSurfaceReleased = errors.New("surface already released")

	// ErrSchedulerActive is returned when starting a scheduler that already runs a loop.
	ErrSchedulerActive = errors.New("scheduler already running")

	// ErrAlreadyAttached is returned when attaching a visualizer that is still attached.
	ErrAlreadyAttached = errors.New("visualizer already attached")

	// ErrAmbientRunning is returned when starting the ambient field twice.
	ErrAmbientRunning = errors.New("ambient field already running")

	// ErrAmbientNotRunning is returned when an operation needs a running ambient field.
	ErrAmbientNotRunning = errors.New("ambient field not running")

	// ErrEffectDisposed is returned when using an effect after it was disposed.
	ErrEffectDisposed = errors.New("effect disposed")

	// ErrEmptyClip is returned when a recording finished without any samples.
	ErrEmptyClip = errors.New("voice clip is empty")
)

// AcquisitionError reports a failure to open a capture session.
// It is recoverable: only the requesting session is aborted.
type AcquisitionError struct {
	Intent  CaptureIntent // Intent of the session being opened
	Op      string        // Step that failed (e.g., "context", "stream", "analyser")
	Message string        // Error message
	Err     error         // Underlying error
}

// Error implements the error interface.
func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("capture %s: %s failed: %s", e.Intent, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the single descriptive message shown to the user.
func (e *AcquisitionError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrPermissionDenied):
		return "Could not access microphone. Please check your permissions."
	case errors.Is(e.Err, ErrDeviceNotFound):
		return "No microphone was found. Please connect one and try again."
	case errors.Is(e.Err, ErrCaptureBusy):
		return "The microphone is already in use."
	default:
		return "Error setting up audio capture. Please try again."
	}
}

// NewAcquisitionError creates a new AcquisitionError.
func NewAcquisitionError(intent CaptureIntent, op, message string, err error) *AcquisitionError {
	return &AcquisitionError{
		Intent:  intent,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RenderSurfaceError reports that an effect could not obtain a usable drawing surface.
// Only the affected effect is aborted.
type RenderSurfaceError struct {
	Effect  string // Effect name (e.g., "ambient", "evaporation", "visualizer")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RenderSurfaceError) Error() string {
	return fmt.Sprintf("render surface for %s.%s failed: %s", e.Effect, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RenderSurfaceError) Unwrap() error {
	return e.Err
}

// NewRenderSurfaceError creates a new RenderSurfaceError.
func NewRenderSurfaceError(effect, op, message string, err error) *RenderSurfaceError {
	return &RenderSurfaceError{
		Effect:  effect,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// TeardownWarning is a non-fatal failure while releasing a resource.
// It is logged and never blocks further operation.
type TeardownWarning struct {
	Component string // Component being torn down (e.g., "session", "surface")
	Op        string // Step that failed (e.g., "stop-track", "close-context")
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *TeardownWarning) Error() string {
	return fmt.Sprintf("teardown warning in %s.%s: %v", e.Component, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TeardownWarning) Unwrap() error {
	return e.Err
}

// NewTeardownWarning creates a new TeardownWarning.
func NewTeardownWarning(component, op string, err error) *TeardownWarning {
	return &TeardownWarning{
		Component: component,
		Op:        op,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
