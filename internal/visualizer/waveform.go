package visualizer

import (
	"image/color"
	"math"

	"github.com/tejashwikalptaru/vaporfx/internal/dsp"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

const (
	waveLayers     = 6
	wavePhaseStep  = 0.05
	waveHeight     = 0.3 // peak height as a fraction of the surface height
	waveMinAmp     = 0.1
	waveScaleDecay = 0.2 // amplitude lost across all layers
	waveFadeDecay  = 0.7 // opacity lost across all layers
	waveStep       = 2   // horizontal sample spacing in pixels
)

// DefaultWaveColor is the single waveform color.
var DefaultWaveColor = color.NRGBA{R: 0, G: 122, B: 255, A: 128}

// MulticolorPalette colors waveform layers in turn.
var MulticolorPalette = []color.NRGBA{
	{R: 0, G: 122, B: 255, A: 179},
	{R: 94, G: 92, B: 230, A: 179},
	{R: 255, G: 149, B: 0, A: 179},
	{R: 255, G: 45, B: 85, A: 179},
	{R: 52, G: 199, B: 89, A: 179},
}

// WaveLayer is one filled waveform layer.
type WaveLayer struct {
	Points  []ports.Point // closed outline, starting and ending on the centre line
	Color   color.NRGBA
	Opacity float64
}

// Amplitude maps a level in [0,1] to the waveform amplitude in [0.1, 1].
func Amplitude(level float64) float64 {
	level = min(max(level, 0), 1)
	return waveMinAmp + (1-waveMinAmp)*level
}

// NextPhase advances the animation phase by one frame, wrapping past 2π.
func NextPhase(phase float64) float64 {
	phase += wavePhaseStep
	if phase > 2*math.Pi {
		phase = 0
	}
	return phase
}

// WaveLayers computes the outlines of every layer for a w×h surface.
// Layers are ordered back to front; palette colors are used in turn.
func WaveLayers(w, h int, amplitude, phase float64, palette []color.NRGBA) []WaveLayer {
	if w <= 0 || h <= 0 || len(palette) == 0 {
		return nil
	}

	centerY := float64(h) / 2
	layers := make([]WaveLayer, waveLayers)
	for i := range layers {
		fi := float64(i)
		scale := amplitude * (1 - fi*waveScaleDecay/waveLayers)
		maxHeight := float64(h) * waveHeight * scale
		offset := fi*math.Pi/4 + phase

		points := make([]ports.Point, 0, w/waveStep+3)
		points = append(points, ports.Point{X: 0, Y: centerY})
		for x := 0; x < w; x += waveStep {
			dx := float64(x) / float64(w)
			y := math.Sin(dx*math.Pi*6+offset)*maxHeight*0.6 +
				math.Sin(dx*math.Pi*9+offset*1.3)*maxHeight*0.3 +
				math.Sin(dx*math.Pi*12+offset*0.7)*maxHeight*0.1
			points = append(points, ports.Point{X: float64(x), Y: centerY + y})
		}
		points = append(points, ports.Point{X: float64(w), Y: centerY})

		layers[i] = WaveLayer{
			Points:  points,
			Color:   palette[i%len(palette)],
			Opacity: 1 - fi*waveFadeDecay/waveLayers,
		}
	}
	return layers
}

// waveform draws layered sine waves whose amplitude follows the smoothed level.
type waveform struct {
	palette []color.NRGBA
	level   *dsp.Smoother
	phase   float64
}

func newWaveform(palette []color.NRGBA, fps int) *waveform {
	return &waveform{
		palette: palette,
		level:   dsp.NewSmoother(fps),
	}
}

func (v *waveform) draw(s ports.Surface, bins []uint8) {
	level := v.level.Update(dsp.Level(bins))
	v.phase = NextPhase(v.phase)

	w, h := s.Size()
	for _, layer := range WaveLayers(w, h, Amplitude(level), v.phase, v.palette) {
		s.FillPolygon(layer.Points, layer.Color, layer.Opacity)
	}
}
