package visualizer

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
	"github.com/tejashwikalptaru/vaporfx/internal/testutil"
)

// fixedSource returns the same bins on every read.
type fixedSource struct {
	bins  []uint8
	reads atomic.Int64
}

func (s *fixedSource) ReadSpectrum() []uint8 {
	s.reads.Add(1)
	return append([]uint8(nil), s.bins...)
}

func filled(n int, v uint8) []uint8 {
	bins := make([]uint8, n)
	for i := range bins {
		bins[i] = v
	}
	return bins
}

func TestBarHeights(t *testing.T) {
	var fa FrequencyAnalyzer

	assert.Nil(t, fa.BarHeights(filled(128, 255), 0, 100))
	assert.Equal(t, []float64{0, 0, 0}, fa.BarHeights(nil, 3, 100))

	full := fa.BarHeights(filled(128, 255), 10, 100)
	require.Len(t, full, 10)
	for i, h := range full {
		assert.InDelta(t, 100, h, 1e-9, "bar %d", i)
	}

	half := fa.BarHeights(filled(128, 51), 4, 200)
	for _, h := range half {
		assert.InDelta(t, 40, h, 1e-9)
	}
}

func TestBarHeights_LogGrouping(t *testing.T) {
	var fa FrequencyAnalyzer

	// Only bin 1 is loud: the lowest bar owns it alone.
	bins := make([]uint8, 128)
	bins[1] = 255
	h := fa.BarHeights(bins, 10, 100)
	assert.InDelta(t, 100, h[0], 1e-9)
	for i := 1; i < len(h); i++ {
		assert.Zero(t, h[i], "bar %d", i)
	}

	// DC is ignored.
	bins = make([]uint8, 128)
	bins[0] = 255
	for _, v := range fa.BarHeights(bins, 10, 100) {
		assert.Zero(t, v)
	}

	// The top bar reaches the last bin.
	bins = make([]uint8, 128)
	bins[127] = 255
	h = fa.BarHeights(bins, 10, 100)
	assert.InDelta(t, 100, h[9], 1e-9)
}

func TestLEDColor_Zones(t *testing.T) {
	assert.Equal(t, uint8(0), ledColor(0.1).R)
	assert.Equal(t, uint8(255), ledColor(0.1).G)

	mid := ledColor(0.575)
	assert.InDelta(t, 127, int(mid.R), 1)
	assert.Equal(t, uint8(255), mid.G)

	top := ledColor(0.99)
	assert.Equal(t, uint8(255), top.R)
	assert.Less(t, top.G, uint8(20))
}

func TestGradientColor(t *testing.T) {
	assert.Equal(t, uint8(0), gradientColor(0).R)
	assert.Equal(t, uint8(255), gradientColor(0).G)
	assert.Equal(t, uint8(255), gradientColor(1).R)
	assert.Equal(t, uint8(0), gradientColor(1).G)
	assert.Equal(t, gradientColor(1), gradientColor(3))
}

func TestAmplitude(t *testing.T) {
	assert.InDelta(t, 0.1, Amplitude(0), 1e-12)
	assert.InDelta(t, 1.0, Amplitude(1), 1e-12)
	assert.InDelta(t, 0.55, Amplitude(0.5), 1e-12)
	assert.InDelta(t, 1.0, Amplitude(4), 1e-12)
	assert.InDelta(t, 0.1, Amplitude(-1), 1e-12)
}

func TestNextPhase_Wraps(t *testing.T) {
	assert.InDelta(t, 0.05, NextPhase(0), 1e-12)
	assert.Zero(t, NextPhase(2*math.Pi-0.01))

	phase := 0.0
	for range 200 {
		phase = NextPhase(phase)
		assert.LessOrEqual(t, phase, 2*math.Pi)
	}
}

func TestWaveLayers(t *testing.T) {
	const w, h = 200, 100
	amp := Amplitude(1)
	layers := WaveLayers(w, h, amp, 0.3, MulticolorPalette)
	require.Len(t, layers, 6)

	for i, l := range layers {
		assert.InDelta(t, 1-float64(i)*0.7/6, l.Opacity, 1e-12)
		assert.Equal(t, MulticolorPalette[i%len(MulticolorPalette)], l.Color)

		first, last := l.Points[0], l.Points[len(l.Points)-1]
		assert.Equal(t, 50.0, first.Y)
		assert.Equal(t, 50.0, last.Y)
		assert.Equal(t, float64(w), last.X)

		maxHeight := h * 0.3 * amp * (1 - float64(i)*0.2/6)
		for _, p := range l.Points {
			assert.LessOrEqual(t, math.Abs(p.Y-50), maxHeight+1e-9)
		}
	}
	assert.Equal(t, MulticolorPalette[0], layers[5].Color)

	assert.Nil(t, WaveLayers(0, h, amp, 0, MulticolorPalette))
	assert.Nil(t, WaveLayers(w, h, amp, 0, nil))
}

func TestWaveLayers_QuietIsFlatter(t *testing.T) {
	spread := func(layers []WaveLayer) float64 {
		var m float64
		for _, p := range layers[0].Points {
			m = max(m, math.Abs(p.Y-50))
		}
		return m
	}
	loud := spread(WaveLayers(200, 100, Amplitude(1), 1, MulticolorPalette))
	quiet := spread(WaveLayers(200, 100, Amplitude(0), 1, MulticolorPalette))
	assert.Less(t, quiet, loud/5)
}

func TestVisualizer_AttachDrawsEveryFrame(t *testing.T) {
	host := scheduler.NewManualHost()
	v := New(host, Options{Logger: logger.NewTestLogger()})
	src := &fixedSource{bins: make([]uint8, 128)}
	surface := testutil.NewRecordingSurface(400, 200)

	require.NoError(t, v.Attach(src, surface, domain.StyleLEDBars))
	assert.True(t, v.Attached())
	assert.True(t, v.Running())
	assert.Equal(t, domain.StyleLEDBars, v.Style())

	host.Advance(3)
	assert.Equal(t, int64(3), src.reads.Load())
	assert.Equal(t, 3, surface.Clears)
	assert.Equal(t, 3, surface.Presents)
	// Silence leaves every segment of every bar dim.
	assert.Equal(t, 3*DefaultLEDBars*ledSegments, surface.Rects)
}

func TestVisualizer_AttachTwiceFails(t *testing.T) {
	host := scheduler.NewManualHost()
	v := New(host, Options{})
	src := &fixedSource{bins: make([]uint8, 128)}

	require.NoError(t, v.Attach(src, testutil.NewRecordingSurface(100, 100), domain.StyleBars))
	err := v.Attach(src, testutil.NewRecordingSurface(100, 100), domain.StyleWaveform)
	require.ErrorIs(t, err, domain.ErrAlreadyAttached)
	assert.Equal(t, domain.StyleBars, v.Style())
	assert.Equal(t, 1, host.Attached())
}

func TestVisualizer_DetachStopsDrawingWithoutRelease(t *testing.T) {
	host := scheduler.NewManualHost()
	v := New(host, Options{})
	src := &fixedSource{bins: filled(128, 200)}
	surface := testutil.NewRecordingSurface(300, 120)

	require.NoError(t, v.Attach(src, surface, domain.StyleBars))
	host.Advance(2)
	drawn := surface.Drawn()
	assert.Positive(t, drawn)

	v.Detach()
	assert.False(t, v.Attached())
	assert.False(t, v.Running())
	assert.Zero(t, host.Attached())

	host.Advance(5)
	assert.Equal(t, drawn, surface.Drawn())
	assert.Equal(t, 2, surface.Presents)
	assert.False(t, surface.Released())
	assert.Zero(t, surface.Releases)

	v.Detach()

	// Detach makes the visualizer attachable again.
	require.NoError(t, v.Attach(src, surface, domain.StyleLEDBars))
	host.Advance(1)
	assert.Equal(t, 3, surface.Presents)
	v.Detach()
}

func TestVisualizer_AttachValidation(t *testing.T) {
	v := New(scheduler.NewManualHost(), Options{})
	src := &fixedSource{}
	surface := testutil.NewRecordingSurface(10, 10)

	var verr *domain.ValidationError
	require.ErrorAs(t, v.Attach(nil, surface, domain.StyleBars), &verr)
	assert.Equal(t, "source", verr.Field)

	var serr *domain.RenderSurfaceError
	require.ErrorAs(t, v.Attach(src, nil, domain.StyleBars), &serr)
	assert.ErrorIs(t, serr, domain.ErrSurfaceUnavailable)

	require.ErrorAs(t, v.Attach(src, surface, "sparkles"), &verr)
	assert.Equal(t, "style", verr.Field)

	assert.False(t, v.Attached())
}

func TestVisualizer_WaveformDrawsLayers(t *testing.T) {
	host := scheduler.NewManualHost()
	v := New(host, Options{Multicolor: true})
	surface := testutil.NewRecordingSurface(200, 80)

	require.NoError(t, v.Attach(&fixedSource{bins: filled(128, 128)}, surface, domain.StyleWaveform))
	host.Advance(4)
	assert.Equal(t, 4*waveLayers, surface.Polygons)
	assert.InDelta(t, 1.0, surface.MaxAlpha, 1e-12)
	assert.InDelta(t, 1-5*0.7/6, surface.MinAlpha, 1e-12)
	v.Detach()
}

func TestVisualizer_LEDCapsFall(t *testing.T) {
	bars := newLEDBars(4)
	surface := testutil.NewRecordingSurface(200, 180)

	bars.draw(surface, filled(128, 255))
	for _, c := range bars.caps {
		assert.InDelta(t, ledSegments, c, 1e-9)
	}

	silence := make([]uint8, 128)
	bars.draw(surface, silence)
	for _, c := range bars.caps {
		assert.InDelta(t, ledSegments-ledCapFalloff, c, 1e-9)
	}

	for range 2 * ledSegments {
		bars.draw(surface, silence)
	}
	for _, c := range bars.caps {
		assert.Zero(t, c)
	}
}

func TestVisualizer_TinySurfaceDrawsNothing(t *testing.T) {
	surface := testutil.NewRecordingSurface(15, 15)
	newLEDBars(8).draw(surface, filled(128, 255))
	newGradientBars(8).draw(surface, filled(128, 255))
	assert.Zero(t, surface.Drawn())
}

func TestVisualizer_TickerHostDetach(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	host := scheduler.NewTickerHost(240)
	defer host.Close()

	v := New(host, Options{})
	src := &fixedSource{bins: filled(128, 90)}
	surface := testutil.NewRecordingSurface(120, 60)
	require.NoError(t, v.Attach(src, surface, domain.StyleWaveform))

	require.Eventually(t, func() bool { return src.reads.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	v.Detach()

	reads := src.reads.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, reads, src.reads.Load())
}
