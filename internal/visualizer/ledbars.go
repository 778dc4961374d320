package visualizer

import (
	"image/color"

	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

const (
	ledSegments   = 16  // LED segments per bar
	ledGapRatio   = 0.2 // gap as a fraction of segment pitch
	ledPadding    = 10
	ledMinGap     = 2
	ledCapFalloff = 1.0 // segments per frame the cap falls
)

var (
	ledDim = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
	ledCap = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// ledBars draws segmented bars with green, yellow and red zones, dim unlit
// segments and a falling white cap.
type ledBars struct {
	layout  barLayout
	freq    FrequencyAnalyzer
	caps    []float64 // cap position in segments
	showDim bool

	segHeight int
	segGap    int
}

func newLEDBars(numBars int) *ledBars {
	return &ledBars{
		layout:  newBarLayout(numBars, 2, ledMinGap, ledPadding),
		caps:    make([]float64, numBars),
		showDim: true,
	}
}

func (v *ledBars) draw(s ports.Surface, bins []uint8) {
	w, h := s.Size()
	resized := v.layout.lastW != w || v.layout.lastH != h
	if !v.layout.update(w, h) {
		return
	}
	if resized {
		pitch := float64(v.layout.effectiveH) / ledSegments
		v.segGap = max(int(pitch*ledGapRatio), 1)
		v.segHeight = max(int(pitch)-v.segGap, 2)
	}

	maxHeight := float64(v.layout.effectiveH)
	heights := v.freq.BarHeights(bins, v.layout.numBars, maxHeight)
	v.updateCaps(heights, maxHeight)

	step := v.segHeight + v.segGap
	bw := float64(v.layout.barWidth)
	for i, bh := range heights {
		x := float64(v.layout.barX(i))
		lit := int(bh / maxHeight * ledSegments)
		capSeg := int(v.caps[i])

		for seg := range ledSegments {
			y := float64(v.layout.bottom() - (seg+1)*step)
			switch {
			case seg < lit:
				s.FillRect(x, y, bw, float64(v.segHeight), ledColor(float64(seg)/ledSegments), 1)
			case seg == capSeg && capSeg > 0:
				s.FillRect(x, y, bw, float64(v.segHeight), ledCap, 1)
			case v.showDim:
				s.FillRect(x, y, bw, float64(v.segHeight), ledDim, 1)
			}
		}
	}
}

// updateCaps raises caps to the lit height immediately and lets them fall
// ledCapFalloff segments per frame.
func (v *ledBars) updateCaps(heights []float64, maxHeight float64) {
	for i, bh := range heights {
		lit := bh / maxHeight * ledSegments
		if lit > v.caps[i] {
			v.caps[i] = lit
			continue
		}
		v.caps[i] = max(v.caps[i]-ledCapFalloff, 0)
	}
}
