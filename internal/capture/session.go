// Package capture manages microphone capture sessions.
//
// A Session owns one live stream, one audio context and one analyser. Open builds
// them in that order (context, stream, analyser) and rolls every completed step
// back when a later one fails, so a failed Open never leaves a stream or context open.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/dsp"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// Defaults used when Options leave a field zero.
const (
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 1024
)

// Options configure a session.
type Options struct {
	SampleRate      int
	FFTSize         int
	FramesPerBuffer int
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.FFTSize <= 0 {
		o.FFTSize = dsp.DefaultFFTSize
	}
	if o.FramesPerBuffer <= 0 {
		o.FramesPerBuffer = DefaultFramesPerBuffer
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Session is an open capture session.
//
// Thread-safety: all methods may be called from any goroutine.
type Session struct {
	intent   domain.CaptureIntent
	logger   *slog.Logger
	audioCtx ports.AudioContext
	stream   ports.MediaStream
	analyser ports.AnalyserNode
	recorder *Recorder

	mu      sync.Mutex
	bins    []uint8
	closed  bool
	readErr error
}

// Open acquires the microphone for intent. Record sessions get a Recorder that
// receives every sample the session pulls.
func Open(ctx context.Context, provider ports.AudioDeviceProvider, intent domain.CaptureIntent, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(slog.String("intent", intent.String()))

	if provider == nil {
		return nil, domain.NewAcquisitionError(intent, "provider", "no audio device provider", domain.ErrDeviceNotFound)
	}
	if !dsp.ValidFFTSize(opts.FFTSize) {
		return nil, domain.NewAcquisitionError(intent, "analyser", "invalid fft size",
			domain.NewValidationError("fft_size", opts.FFTSize, "must be a power of two between 32 and 32768"))
	}

	audioCtx, err := provider.NewContext(opts.SampleRate)
	if err != nil {
		return nil, domain.NewAcquisitionError(intent, "context", err.Error(), err)
	}

	stream, err := provider.RequestStream(ctx, ports.StreamConstraints{
		SampleRate:      opts.SampleRate,
		FramesPerBuffer: opts.FramesPerBuffer,
		Channels:        1,
	})
	if err != nil {
		rollback(log, nil, audioCtx, nil)
		return nil, domain.NewAcquisitionError(intent, "stream", err.Error(), err)
	}

	analyser, err := audioCtx.CreateAnalyser(stream, opts.FFTSize)
	if err != nil {
		rollback(log, nil, audioCtx, stream)
		return nil, domain.NewAcquisitionError(intent, "analyser", err.Error(), err)
	}

	s := &Session{
		intent:   intent,
		logger:   log,
		audioCtx: audioCtx,
		stream:   stream,
		analyser: analyser,
		bins:     make([]uint8, analyser.FrequencyBinCount()),
	}
	if intent == domain.IntentRecord {
		s.recorder = NewRecorder(stream.SampleRate())
	}

	log.Info("capture session opened",
		slog.String("stream", stream.ID()),
		slog.Int("fft_size", analyser.FFTSize()))
	return s, nil
}

// rollback undoes the steps of a failed Open, in reverse order. Failures are only logged.
func rollback(log *slog.Logger, analyser ports.AnalyserNode, audioCtx ports.AudioContext, stream ports.MediaStream) {
	if err := release(analyser, audioCtx, stream); err != nil {
		log.Warn("capture rollback incomplete", slog.Any("error", err))
	}
}

// release stops the analyser, closes the context and stops every track.
// Each step runs even when an earlier one failed.
func release(analyser ports.AnalyserNode, audioCtx ports.AudioContext, stream ports.MediaStream) error {
	var errs []error

	if analyser != nil {
		analyser.Stop()
	}
	if audioCtx != nil && !audioCtx.Closed() {
		if err := audioCtx.Close(); err != nil {
			errs = append(errs, domain.NewTeardownWarning("session", "close-context", err))
		}
	}
	if stream != nil {
		for _, track := range stream.Tracks() {
			if err := track.Stop(); err != nil {
				errs = append(errs, domain.NewTeardownWarning("session", "stop-track", err))
			}
		}
	}
	return errors.Join(errs...)
}

// Intent returns why the session was opened.
func (s *Session) Intent() domain.CaptureIntent {
	return s.intent
}

// Recorder returns the voice recorder of a Record session, or nil.
func (s *Session) Recorder() *Recorder {
	return s.recorder
}

// SampleRate of the underlying stream.
func (s *Session) SampleRate() int {
	return s.stream.SampleRate()
}

// BinCount is the number of spectrum bins.
func (s *Session) BinCount() int {
	return len(s.bins)
}

// pull drains new samples into the analyser and recorder and refreshes the bins.
// Callers hold s.mu.
func (s *Session) pull() {
	if s.closed {
		clear(s.bins)
		return
	}

	samples, err := s.analyser.Update()
	if len(samples) > 0 && s.recorder != nil {
		s.recorder.Write(samples)
	}
	if err != nil && s.readErr == nil {
		s.readErr = err
		s.logger.Warn("capture stream read failed", slog.Any("error", err))
	}
	s.analyser.ByteFrequencyData(s.bins)
}

// ReadLevel returns the instantaneous level in [0,1]: the mean bin value over 128, capped at 1.
// A closed session reads 0.
func (s *Session) ReadLevel() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pull()
	return dsp.Level(s.bins)
}

// ReadSpectrum returns a copy of the current spectrum bins.
func (s *Session) ReadSpectrum() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pull()
	return append([]uint8(nil), s.bins...)
}

// Err returns the first stream read error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the analyser, closes the context and stops every track.
// The first call may return *domain.TeardownWarning values joined together;
// the session is closed regardless. Later calls return nil.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	clear(s.bins)

	err := release(s.analyser, s.audioCtx, s.stream)
	if err != nil {
		s.logger.Warn("capture session teardown", slog.Any("error", err))
	}
	s.logger.Info("capture session closed")
	return err
}
