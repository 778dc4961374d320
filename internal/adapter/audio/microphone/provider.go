// Package microphone provides the PortAudio-backed AudioDeviceProvider.
//
// PortAudio delivers input on its own callback thread; the stream keeps the most
// recent samples in a bounded buffer that the analyser drains once per frame.
package microphone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/dsp"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// bufferSeconds is how much unread input a stream keeps before dropping the oldest samples.
const bufferSeconds = 2

// Provider opens the default input device through PortAudio.
//
// Thread-safety: This implementation is thread-safe.
type Provider struct {
	logger *slog.Logger
	nextID atomic.Int64
}

// NewProvider creates a microphone provider.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{logger: logger}
}

// NewContext creates an audio context. PortAudio needs no per-context state,
// so the context only tracks its own closed flag.
func (p *Provider) NewContext(sampleRate int) (ports.AudioContext, error) {
	if sampleRate <= 0 {
		return nil, domain.NewValidationError("sample_rate", sampleRate, "must be positive")
	}
	return &audioContext{}, nil
}

// RequestStream opens and starts a mono input stream on the default device.
func (p *Provider) RequestStream(ctx context.Context, c ports.StreamConstraints) (ports.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("default input device: %w", errors.Join(domain.ErrDeviceNotFound, err))
	}

	s := &stream{
		id:    fmt.Sprintf("mic-%d", p.nextID.Add(1)),
		rate:  c.SampleRate,
		limit: c.SampleRate * bufferSeconds,
	}

	pa, err := portaudio.OpenDefaultStream(1, 0, float64(c.SampleRate), c.FramesPerBuffer, s.process)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream on %s: %w", dev.Name, classify(err))
	}
	if err := pa.Start(); err != nil {
		_ = pa.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream on %s: %w", dev.Name, classify(err))
	}

	s.track = &track{pa: pa, live: true}
	p.logger.Info("microphone stream opened",
		slog.String("stream", s.id),
		slog.String("device", dev.Name),
		slog.Int("sample_rate", c.SampleRate))
	return s, nil
}

// classify maps PortAudio device errors onto the domain taxonomy. Host API
// errors are how the OS reports refused microphone access; anything else is
// returned unchanged.
func classify(err error) error {
	var hostErr portaudio.UnanticipatedHostError
	switch {
	case errors.Is(err, portaudio.InvalidDevice), errors.Is(err, portaudio.DeviceUnavailable):
		return errors.Join(domain.ErrDeviceNotFound, err)
	case errors.As(err, &hostErr):
		return errors.Join(domain.ErrPermissionDenied, err)
	default:
		return err
	}
}

type audioContext struct {
	mu     sync.Mutex
	closed bool
}

func (c *audioContext) CreateAnalyser(s ports.MediaStream, fftSize int) (ports.AnalyserNode, error) {
	if c.Closed() {
		return nil, domain.ErrContextClosed
	}
	return dsp.NewAnalyser(s, fftSize)
}

func (c *audioContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrContextClosed
	}
	c.closed = true
	return nil
}

func (c *audioContext) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type stream struct {
	id    string
	rate  int
	limit int
	track *track

	mu      sync.Mutex
	pending []float32
}

func (s *stream) ID() string                 { return s.id }
func (s *stream) SampleRate() int            { return s.rate }
func (s *stream) Tracks() []ports.MediaTrack { return []ports.MediaTrack{s.track} }

// process runs on the PortAudio callback thread.
func (s *stream) process(in []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, in...)
	if over := len(s.pending) - s.limit; over > 0 {
		s.pending = append(s.pending[:0], s.pending[over:]...)
	}
}

func (s *stream) Read(dst []float32) (int, error) {
	if !s.track.Live() {
		return 0, domain.ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(dst, s.pending)
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return n, nil
}

type track struct {
	pa *portaudio.Stream

	mu   sync.Mutex
	live bool
}

func (t *track) Kind() string { return "audio" }

func (t *track) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Stop stops and closes the PortAudio stream and releases this stream's
// reference on the PortAudio library.
func (t *track) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live {
		return nil
	}
	t.live = false

	return errors.Join(t.pa.Stop(), t.pa.Close(), portaudio.Terminate())
}

// Verify that Provider implements the AudioDeviceProvider interface
var _ ports.AudioDeviceProvider = (*Provider)(nil)
