// Package particles implements the ambient vapor field and the evaporation burst.
package particles

import (
	"image/color"
	"math/rand/v2"
)

// paletteAlpha is the alpha every palette color carries.
const paletteAlpha = 0.7

// DefaultPalette is blue, purple, orange, pink, green and violet at 0.7 alpha.
var DefaultPalette = []color.NRGBA{
	{R: 0, G: 122, B: 255, A: alphaByte(paletteAlpha)},
	{R: 94, G: 92, B: 230, A: alphaByte(paletteAlpha)},
	{R: 255, G: 149, B: 0, A: alphaByte(paletteAlpha)},
	{R: 255, G: 45, B: 85, A: alphaByte(paletteAlpha)},
	{R: 52, G: 199, B: 89, A: alphaByte(paletteAlpha)},
	{R: 175, G: 82, B: 222, A: alphaByte(paletteAlpha)},
}

func alphaByte(a float64) uint8 {
	return uint8(a*255 + 0.5)
}

// Rand is the uniform [0,1) source particles are spawned from.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG source seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func pick(r Rand, palette []color.NRGBA) color.NRGBA {
	i := int(r.Float64() * float64(len(palette)))
	if i >= len(palette) {
		i = len(palette) - 1
	}
	return palette[i]
}
