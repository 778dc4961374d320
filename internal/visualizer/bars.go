package visualizer

import (
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

const (
	barPadding    = 10
	barMinGap     = 2
	barCapHeight  = 2
	barCapFalloff = 2.0 // pixels per frame the cap falls
	barBand       = 4   // gradient band height in pixels
)

// gradientBars draws solid bars shaded bottom to top with a falling cap.
type gradientBars struct {
	layout barLayout
	freq   FrequencyAnalyzer
	caps   []float64 // cap height in pixels
}

func newGradientBars(numBars int) *gradientBars {
	return &gradientBars{
		layout: newBarLayout(numBars, 1, barMinGap, barPadding),
		caps:   make([]float64, numBars),
	}
}

func (v *gradientBars) draw(s ports.Surface, bins []uint8) {
	w, h := s.Size()
	if !v.layout.update(w, h) {
		return
	}

	maxHeight := float64(v.layout.effectiveH)
	heights := v.freq.BarHeights(bins, v.layout.numBars, maxHeight)
	bottom := float64(v.layout.bottom())
	bw := float64(v.layout.barWidth)

	for i, bh := range heights {
		x := float64(v.layout.barX(i))

		for y := 0.0; y < bh; y += barBand {
			band := min(barBand, bh-y)
			s.FillRect(x, bottom-y-band, bw, band, gradientColor(y/maxHeight), 1)
		}

		if bh > v.caps[i] {
			v.caps[i] = bh
		} else {
			v.caps[i] = max(v.caps[i]-barCapFalloff, 0)
		}
		if c := v.caps[i]; c > 0 && c < maxHeight {
			s.FillRect(x, bottom-c-barCapHeight, bw, barCapHeight, ledCap, 1)
		}
	}
}
