package visualizer

// barLayout caches size-dependent bar geometry. It is recalculated only when
// the surface size changes.
type barLayout struct {
	numBars int
	minBar  int // narrowest allowed bar
	minGap  int
	padding int

	lastW, lastH int
	barWidth     int
	gap          int
	startX       int
	effectiveW   int
	effectiveH   int
}

func newBarLayout(numBars, minBar, minGap, padding int) barLayout {
	return barLayout{numBars: numBars, minBar: minBar, minGap: minGap, padding: padding}
}

// update recalculates the layout for a w×h surface. It reports whether there
// is room to draw.
func (l *barLayout) update(w, h int) bool {
	if l.lastW == w && l.lastH == h {
		return l.barWidth > 0
	}
	l.lastW, l.lastH = w, h

	l.effectiveW = w - 2*l.padding
	l.effectiveH = h - 2*l.padding
	if l.effectiveW <= 0 || l.effectiveH <= 0 || l.numBars <= 0 {
		l.barWidth = 0
		return false
	}

	available := l.effectiveW - (l.numBars-1)*l.minGap
	l.barWidth = max(available/l.numBars, l.minBar)

	// Spread what is left over evenly between bars.
	l.gap = l.minGap
	if l.numBars > 1 {
		remaining := l.effectiveW - l.barWidth*l.numBars
		l.gap = max(remaining/(l.numBars-1), l.minGap)
	}

	used := l.numBars*l.barWidth + (l.numBars-1)*l.gap
	l.startX = l.padding + (l.effectiveW-used)/2
	return true
}

// barX returns the left edge of bar i.
func (l *barLayout) barX(i int) int {
	return l.startX + i*(l.barWidth+l.gap)
}

// bottom is the y of the baseline bars grow up from.
func (l *barLayout) bottom() int {
	return l.lastH - l.padding
}
