// Package domain contains the core models shared by effects, capture and services.
// It has no dependencies on rendering or audio backends.
package domain

import (
	"fmt"
	"time"
)

// CaptureIntent tells why a capture session is opened.
// Record and Preview sessions are mutually exclusive.
type CaptureIntent int

const (
	// IntentNone means no session is open.
	IntentNone CaptureIntent = iota

	// IntentRecord captures a voice clip while showing live levels.
	IntentRecord

	// IntentPreview only feeds the spectrum visualizer.
	IntentPreview
)

// String returns the intent name.
func (i CaptureIntent) String() string {
	switch i {
	case IntentNone:
		return "none"
	case IntentRecord:
		return "record"
	case IntentPreview:
		return "preview"
	default:
		return fmt.Sprintf("intent(%d)", int(i))
	}
}

// VisualizerStyle selects how captured audio is drawn.
type VisualizerStyle string

// Available visualizer styles.
const (
	StyleLEDBars  VisualizerStyle = "led_bars"
	StyleBars     VisualizerStyle = "bars"
	StyleWaveform VisualizerStyle = "waveform"
)

// Valid reports whether s names a known style.
func (s VisualizerStyle) Valid() bool {
	switch s {
	case StyleLEDBars, StyleBars, StyleWaveform:
		return true
	}
	return false
}

// VoiceClip is a finished recording handed to the chat dispatch collaborator.
type VoiceClip struct {
	// Data is a complete WAV file (16-bit PCM, mono)
	Data []byte

	// MimeType of Data
	MimeType string

	// Duration of the recorded audio
	Duration time.Duration

	// SampleRate in Hz
	SampleRate int

	// Samples is the number of recorded frames
	Samples int
}

// BurstEndReason tells why an evaporation burst stopped.
type BurstEndReason string

// Burst end reasons.
const (
	BurstFaded     BurstEndReason = "faded"
	BurstFrameCap  BurstEndReason = "frame_cap"
	BurstCancelled BurstEndReason = "cancelled"
)

// BurstResult summarizes a finished evaporation burst.
type BurstResult struct {
	Frames int
	Reason BurstEndReason
}
