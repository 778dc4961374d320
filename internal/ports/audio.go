// Package ports define the audio capture interfaces.
// Adapters provide a platform microphone or a counting test double behind them.
package ports

import (
	"context"
)

// StreamConstraints describe the requested capture stream.
type StreamConstraints struct {
	SampleRate      int
	FramesPerBuffer int
	Channels        int
}

// MediaTrack is one track of a media stream.
type MediaTrack interface {
	// Kind is "audio" for microphone tracks.
	Kind() string

	// Stop ends the track and releases the device it holds.
	// Stopping an already stopped track is a no-op.
	Stop() error

	// Live reports whether the track still holds the device.
	Live() bool
}

// MediaStream is a live capture stream.
type MediaStream interface {
	// ID identifies the stream for logging.
	ID() string

	// Tracks returns every track of the stream.
	Tracks() []MediaTrack

	// SampleRate of the delivered samples in Hz.
	SampleRate() int

	// Read copies up to len(dst) mono samples that arrived since the last call.
	// It never blocks; it returns 0 when nothing new is available.
	Read(dst []float32) (int, error)
}

// AnalyserNode computes frequency bins from the samples of one stream.
type AnalyserNode interface {
	// FFTSize is the transform length.
	FFTSize() int

	// FrequencyBinCount is FFTSize/2.
	FrequencyBinCount() int

	// Update pulls new samples from the stream into the analysis window
	// and returns the samples it consumed.
	Update() ([]float32, error)

	// ByteFrequencyData fills dst with bins scaled to [0, 255].
	ByteFrequencyData(dst []uint8)

	// Stop disconnects the node from its stream.
	Stop()
}

// AudioContext owns analysis nodes.
type AudioContext interface {
	// CreateAnalyser connects a new analyser node to stream.
	CreateAnalyser(stream MediaStream, fftSize int) (AnalyserNode, error)

	// Close closes the context. It is an error to close it twice.
	Close() error

	// Closed reports whether Close succeeded.
	Closed() bool
}

// AudioDeviceProvider grants access to the capture device.
//
// Implementations must be safe for concurrent use; every stream and context
// they hand out must be released by the caller.
type AudioDeviceProvider interface {
	// NewContext creates an audio context running at sampleRate.
	NewContext(sampleRate int) (AudioContext, error)

	// RequestStream asks for microphone access. It fails with an error wrapping
	// domain.ErrPermissionDenied or domain.ErrDeviceNotFound.
	RequestStream(ctx context.Context, c StreamConstraints) (MediaStream, error)
}
