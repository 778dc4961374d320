package dsp

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// sliceStream serves a fixed set of samples, then nothing.
type sliceStream struct {
	samples []float32
	err     error
}

func (s *sliceStream) ID() string                 { return "slice" }
func (s *sliceStream) Tracks() []ports.MediaTrack { return nil }
func (s *sliceStream) SampleRate() int            { return 44100 }

func (s *sliceStream) Read(dst []float32) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n := copy(dst, s.samples)
	s.samples = s.samples[n:]
	return n, nil
}

func sine(n int, freq, rate, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func TestValidFFTSize(t *testing.T) {
	assert.True(t, ValidFFTSize(256))
	assert.True(t, ValidFFTSize(32))
	assert.True(t, ValidFFTSize(32768))
	assert.False(t, ValidFFTSize(16))
	assert.False(t, ValidFFTSize(300))
	assert.False(t, ValidFFTSize(65536))
}

func TestNewAnalyser_Validation(t *testing.T) {
	_, err := NewAnalyser(nil, 256)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = NewAnalyser(&sliceStream{}, 100)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fft_size", verr.Field)

	a, err := NewAnalyser(&sliceStream{}, 256)
	require.NoError(t, err)
	assert.Equal(t, 256, a.FFTSize())
	assert.Equal(t, 128, a.FrequencyBinCount())
}

func TestAnalyser_SilenceIsZero(t *testing.T) {
	a, err := NewAnalyser(&sliceStream{samples: make([]float32, 1024)}, 256)
	require.NoError(t, err)

	got, err := a.Update()
	require.NoError(t, err)
	assert.Len(t, got, 1024)

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	assert.Equal(t, 0.0, Level(bins))
}

func TestAnalyser_SinePeaksAtItsBin(t *testing.T) {
	const rate = 44100.0
	const size = 256
	// Bin 20 is centred on 20*rate/size Hz.
	freq := 20 * rate / size

	a, err := NewAnalyser(&sliceStream{samples: sine(size*4, freq, rate, 0.05)}, size)
	require.NoError(t, err)
	_, err = a.Update()
	require.NoError(t, err)

	bins := make([]uint8, a.FrequencyBinCount())
	for range 30 {
		a.ByteFrequencyData(bins)
	}

	peak := 0
	for k := range bins {
		if bins[k] > bins[peak] {
			peak = k
		}
	}
	assert.Equal(t, 20, peak)
	// 0.05 amplitude through a Blackman window is about -39.6 dB.
	assert.InDelta(t, 220, int(bins[20]), 4)
	assert.Less(t, bins[100], uint8(50))
}

func TestAnalyser_SmoothingRisesGradually(t *testing.T) {
	a, err := NewAnalyser(&sliceStream{samples: sine(512, 2000, 44100, 0.01)}, 256)
	require.NoError(t, err)
	_, err = a.Update()
	require.NoError(t, err)

	bins := make([]uint8, 128)
	a.ByteFrequencyData(bins)
	first := Level(bins)
	for range 20 {
		a.ByteFrequencyData(bins)
	}
	assert.Greater(t, Level(bins), first)
}

func TestAnalyser_StopZeroesOutput(t *testing.T) {
	stream := &sliceStream{samples: sine(1024, 1000, 44100, 0.8)}
	a, err := NewAnalyser(stream, 256)
	require.NoError(t, err)
	_, err = a.Update()
	require.NoError(t, err)

	a.Stop()
	assert.True(t, a.Stopped())

	bins := []uint8{9, 9, 9}
	a.ByteFrequencyData(bins)
	assert.Equal(t, []uint8{0, 0, 0}, bins)

	got, err := a.Update()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalyser_UpdateReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	a, err := NewAnalyser(&sliceStream{err: boom}, 256)
	require.NoError(t, err)

	_, err = a.Update()
	assert.ErrorIs(t, err, boom)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 0.0, Level(nil))
	assert.Equal(t, 0.5, Level([]uint8{64, 64}))
	assert.Equal(t, 1.0, Level([]uint8{128, 128}))
	assert.Equal(t, 1.0, Level([]uint8{255, 255}))
}
