// Package dsp implements the frequency analyser used by capture sessions.
//
// The analyser mirrors the behaviour of a browser AnalyserNode: a sliding window of
// the most recent fftSize samples is Blackman-windowed, transformed, smoothed over time
// and mapped from decibels to bytes.
package dsp

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

const (
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
	minFFTSize         = 32
	maxFFTSize         = 32768
	readChunk          = 4096 // samples pulled from the stream per read
)

// Analyser is a ports.AnalyserNode over a media stream.
type Analyser struct {
	stream ports.MediaStream

	mu       sync.Mutex
	size     int
	window   []float64 // most recent samples, oldest first
	coeffs   []float64 // Blackman coefficients
	smoothed []float64
	scratch  []float32
	stopped  bool

	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64
}

// ValidFFTSize reports whether n is a power of two in [32, 32768].
func ValidFFTSize(n int) bool {
	return n >= minFFTSize && n <= maxFFTSize && bits.OnesCount(uint(n)) == 1
}

// NewAnalyser creates an analyser reading from stream.
func NewAnalyser(stream ports.MediaStream, fftSize int) (*Analyser, error) {
	if stream == nil {
		return nil, domain.NewValidationError("stream", nil, "stream cannot be nil")
	}
	if !ValidFFTSize(fftSize) {
		return nil, domain.NewValidationError("fft_size", fftSize, "must be a power of two between 32 and 32768")
	}

	return &Analyser{
		stream:      stream,
		size:        fftSize,
		window:      make([]float64, fftSize),
		coeffs:      window.Blackman(fftSize),
		smoothed:    make([]float64, fftSize/2),
		scratch:     make([]float32, readChunk),
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}, nil
}

// FFTSize returns the transform length.
func (a *Analyser) FFTSize() int {
	return a.size
}

// FrequencyBinCount returns FFTSize/2.
func (a *Analyser) FrequencyBinCount() int {
	return a.size / 2
}

// Update drains the stream into the sliding window and returns the drained samples.
// The returned slice is only valid until the next call.
func (a *Analyser) Update() ([]float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return nil, nil
	}

	total := 0
	for {
		if total == len(a.scratch) {
			a.scratch = append(a.scratch, make([]float32, readChunk)...)
		}
		n, err := a.stream.Read(a.scratch[total:])
		if err != nil {
			return a.scratch[:total], fmt.Errorf("read stream %s: %w", a.stream.ID(), err)
		}
		if n == 0 {
			break
		}
		total += n
	}

	a.push(a.scratch[:total])
	return a.scratch[:total], nil
}

// push appends samples to the window, discarding the oldest.
func (a *Analyser) push(samples []float32) {
	if len(samples) >= a.size {
		samples = samples[len(samples)-a.size:]
		for i, s := range samples {
			a.window[i] = float64(s)
		}
		return
	}
	copy(a.window, a.window[len(samples):])
	tail := a.window[a.size-len(samples):]
	for i, s := range samples {
		tail[i] = float64(s)
	}
}

// ByteFrequencyData writes up to FrequencyBinCount bins into dst.
// Each call advances the time smoothing by one step.
func (a *Analyser) ByteFrequencyData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := min(len(dst), len(a.smoothed))
	if a.stopped {
		clear(dst[:n])
		return
	}

	in := make([]float64, a.size)
	for i, s := range a.window {
		in[i] = s * a.coeffs[i]
	}
	spectrum := fft.FFTReal(in)

	scale := 255 / (a.MaxDecibels - a.MinDecibels)
	for k := range a.smoothed {
		mag := cmplx.Abs(spectrum[k]) / float64(a.size)
		a.smoothed[k] = a.Smoothing*a.smoothed[k] + (1-a.Smoothing)*mag
		if k >= n {
			continue
		}

		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		dst[k] = uint8(math.Round(math.Max(0, math.Min(255, (db-a.MinDecibels)*scale))))
	}
}

// Stop disconnects the analyser. Later reads yield zero bins and no samples.
func (a *Analyser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
}

// Stopped reports whether Stop was called.
func (a *Analyser) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Level is the normalised loudness of a byte spectrum: min(mean/128, 1).
func Level(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for _, b := range bins {
		sum += int(b)
	}
	return math.Min(float64(sum)/float64(len(bins))/128, 1)
}

var _ ports.AnalyserNode = (*Analyser)(nil)
