package visualizer

import (
	"image/color"
	"math"
)

// FrequencyAnalyzer groups spectrum bins into display bars.
type FrequencyAnalyzer struct{}

// BarHeights maps byte spectrum bins onto numBars heights in [0, maxHeight].
//
// Bins are grouped logarithmically (bar x ends at bin 2^(x·log2(len−1)/(numBars−1)))
// so low frequencies get their own bars, and each bar shows the peak of its group.
// Bin 0 (DC) is skipped; the last bar always reaches the top bin.
func (FrequencyAnalyzer) BarHeights(bins []uint8, numBars int, maxHeight float64) []float64 {
	if numBars <= 0 {
		return nil
	}
	heights := make([]float64, numBars)
	if len(bins) < 2 || maxHeight <= 0 {
		return heights
	}

	top := len(bins) - 1
	octaves := math.Log2(float64(top))

	b0 := 1
	for x := range numBars {
		b1 := top
		if x < numBars-1 {
			b1 = int(math.Pow(2, float64(x)*octaves/float64(numBars-1)))
		}
		b1 = min(b1, top)
		if b1 < b0 {
			b1 = b0
		}

		var peak uint8
		for b := b0; b <= b1 && b < len(bins); b++ {
			peak = max(peak, bins[b])
		}

		heights[x] = min(float64(peak)/255*maxHeight, maxHeight)
		b0 = b1 + 1
	}
	return heights
}

// ledColor returns the color of an LED segment by its vertical position:
// green below 40%, ramping to yellow by 75%, then to red.
func ledColor(ratio float64) color.NRGBA {
	switch {
	case ratio < 0.4:
		return color.NRGBA{G: 255, A: 255}
	case ratio < 0.75:
		t := (ratio - 0.4) / 0.35
		return color.NRGBA{R: uint8(255 * t), G: 255, A: 255}
	default:
		t := min((ratio-0.75)/0.25, 1)
		return color.NRGBA{R: 255, G: uint8(255 * (1 - t)), A: 255}
	}
}

// gradientColor returns a green-yellow-red gradient color for pos in [0,1],
// green at the bottom of a bar.
func gradientColor(pos float64) color.NRGBA {
	pos = min(max(pos, 0), 1)
	if pos < 0.5 {
		return color.NRGBA{R: uint8(pos * 2 * 255), G: 255, A: 255}
	}
	return color.NRGBA{R: 255, G: uint8((1 - (pos-0.5)*2) * 255), A: 255}
}
