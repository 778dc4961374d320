// Package mock provides a counting AudioDeviceProvider.
// It synthesizes a sine tone instead of opening a microphone, and records how many
// streams and contexts are open so tests can assert that nothing leaks.
package mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/dsp"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// Tone is the synthetic signal delivered by mock streams.
type Tone struct {
	Frequency float64 // Hz
	Amplitude float64 // 0..1
	Chunk     int     // samples delivered per pull
}

// DefaultTone is a 440 Hz tone delivered in 60 fps sized chunks.
var DefaultTone = Tone{Frequency: 440, Amplitude: 0.5, Chunk: 735}

// Provider is a mock implementation of ports.AudioDeviceProvider.
//
// Thread-safety: This implementation is thread-safe.
type Provider struct {
	logger *slog.Logger

	mu   sync.Mutex
	tone Tone

	// Resource accounting
	openStreams      int
	openContexts     int
	maxStreams       int
	maxContexts      int
	streamsRequested int
	contextsCreated  int
	nextID           int

	// Behavior configuration (for testing error scenarios)
	denyPermission   bool
	noDevice         bool
	failContext      bool
	failAnalyser     bool
	failStopTrack    bool
	failCloseContext bool
}

// NewProvider creates a provider delivering DefaultTone.
func NewProvider() *Provider {
	return &Provider{tone: DefaultTone}
}

// SetLogger sets the logger for this provider.
func (p *Provider) SetLogger(logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// SetTone changes the signal of streams opened afterwards.
func (p *Provider) SetTone(t Tone) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.Chunk <= 0 {
		t.Chunk = DefaultTone.Chunk
	}
	p.tone = t
}

// SetDenyPermission makes RequestStream fail with domain.ErrPermissionDenied.
func (p *Provider) SetDenyPermission(deny bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denyPermission = deny
}

// SetNoDevice makes RequestStream fail with domain.ErrDeviceNotFound.
func (p *Provider) SetNoDevice(none bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.noDevice = none
}

// SetFailContext makes NewContext fail.
func (p *Provider) SetFailContext(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failContext = fail
}

// SetFailAnalyser makes CreateAnalyser fail.
func (p *Provider) SetFailAnalyser(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAnalyser = fail
}

// SetFailStopTrack makes track Stop report an error. The track is still stopped.
func (p *Provider) SetFailStopTrack(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failStopTrack = fail
}

// SetFailCloseContext makes context Close report an error. The context is still closed.
func (p *Provider) SetFailCloseContext(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failCloseContext = fail
}

// NewContext creates a mock audio context.
func (p *Provider) NewContext(sampleRate int) (ports.AudioContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failContext {
		return nil, errors.New("mock audio context unavailable")
	}

	p.contextsCreated++
	p.openContexts++
	p.maxContexts = max(p.maxContexts, p.openContexts)
	return &audioContext{provider: p, sampleRate: sampleRate}, nil
}

// RequestStream opens a synthetic stream with one audio track.
func (p *Provider) RequestStream(ctx context.Context, c ports.StreamConstraints) (ports.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.streamsRequested++
	switch {
	case p.denyPermission:
		return nil, fmt.Errorf("mock request: %w", domain.ErrPermissionDenied)
	case p.noDevice:
		return nil, fmt.Errorf("mock request: %w", domain.ErrDeviceNotFound)
	}

	rate := c.SampleRate
	if rate <= 0 {
		rate = 44100
	}

	p.nextID++
	p.openStreams++
	p.maxStreams = max(p.maxStreams, p.openStreams)

	s := &stream{
		id:   fmt.Sprintf("mock-stream-%d", p.nextID),
		rate: rate,
		tone: p.tone,
	}
	s.track = &track{provider: p, live: true}
	if p.logger != nil {
		p.logger.Debug("mock stream opened", slog.String("stream", s.id))
	}
	return s, nil
}

// OpenStreams returns the number of streams with a live track.
func (p *Provider) OpenStreams() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openStreams
}

// OpenContexts returns the number of contexts not yet closed.
func (p *Provider) OpenContexts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openContexts
}

// MaxConcurrentStreams returns the largest number of streams ever open at once.
func (p *Provider) MaxConcurrentStreams() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxStreams
}

// MaxConcurrentContexts returns the largest number of contexts ever open at once.
func (p *Provider) MaxConcurrentContexts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxContexts
}

// StreamsRequested returns how many times RequestStream was called.
func (p *Provider) StreamsRequested() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamsRequested
}

// ContextsCreated returns how many contexts were created.
func (p *Provider) ContextsCreated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contextsCreated
}

type audioContext struct {
	provider   *Provider
	sampleRate int

	mu     sync.Mutex
	closed bool
}

func (c *audioContext) CreateAnalyser(s ports.MediaStream, fftSize int) (ports.AnalyserNode, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, domain.ErrContextClosed
	}

	c.provider.mu.Lock()
	fail := c.provider.failAnalyser
	c.provider.mu.Unlock()
	if fail {
		return nil, errors.New("mock analyser creation failed")
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

	p := c.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openContexts--
	if p.failCloseContext {
		return errors.New("mock context close reported an error")
	}
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
	tone  Tone
	track *track

	mu      sync.Mutex
	phase   float64
	drained bool // the last Read returned the pending chunk
}

func (s *stream) ID() string                 { return s.id }
func (s *stream) SampleRate() int            { return s.rate }
func (s *stream) Tracks() []ports.MediaTrack { return []ports.MediaTrack{s.track} }

// Read delivers one chunk of tone per pull: a chunk, then nothing, then the next chunk.
func (s *stream) Read(dst []float32) (int, error) {
	if !s.track.Live() {
		return 0, io.EOF
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drained {
		s.drained = false
		return 0, nil
	}

	n := min(len(dst), s.tone.Chunk)
	step := 2 * math.Pi * s.tone.Frequency / float64(s.rate)
	for i := range n {
		dst[i] = float32(s.tone.Amplitude * math.Sin(s.phase))
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
	}
	s.drained = true
	return n, nil
}

type track struct {
	provider *Provider

	mu   sync.Mutex
	live bool
}

func (t *track) Kind() string { return "audio" }

func (t *track) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

func (t *track) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.live {
		return nil
	}
	t.live = false

	p := t.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openStreams--
	if p.failStopTrack {
		return errors.New("mock track stop reported an error")
	}
	return nil
}

// Verify that Provider implements the AudioDeviceProvider interface
var _ ports.AudioDeviceProvider = (*Provider)(nil)
