package widgets

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectLayer_SurfaceUsesFallbackSize(t *testing.T) {
	test.NewApp()

	layer := NewEffectLayer(fyne.NewSize(120, 80))
	s := layer.Surface()

	w, h := s.Size()
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
	assert.Same(t, s, layer.Surface(), "a live surface is reused")
}

func TestEffectLayer_ResizeForwardsToSurface(t *testing.T) {
	test.NewApp()

	layer := NewEffectLayer(fyne.NewSize(10, 10))
	s := layer.Surface()

	var got [2]int
	s.OnResize(func(w, h int) { got = [2]int{w, h} })

	layer.Resize(fyne.NewSize(200, 150))
	assert.Equal(t, [2]int{200, 150}, got)

	w, h := s.Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 150, h)
}

func TestEffectLayer_NewSurfaceAfterRelease(t *testing.T) {
	test.NewApp()

	layer := NewEffectLayer(fyne.NewSize(10, 10))
	layer.Resize(fyne.NewSize(64, 48))

	first := layer.Surface()
	require.NoError(t, first.Release())

	second := layer.Surface()
	assert.NotSame(t, first, second)
	w, h := second.Size()
	assert.Equal(t, 64, w, "a replacement takes the laid out size")
	assert.Equal(t, 48, h)
}

func TestEffectLayer_DrawShowsSurface(t *testing.T) {
	test.NewApp()

	layer := NewEffectLayer(fyne.NewSize(20, 20))
	s := layer.Surface()
	s.FillRect(0, 0, 20, 20, color.NRGBA{R: 255, A: 255}, 1)
	s.Present()

	img := layer.draw(20, 20)
	r, _, _, a := img.At(5, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)

	layer.Clear()
	_, _, _, a = layer.draw(20, 20).At(5, 5).RGBA()
	assert.Zero(t, a)

	require.NoError(t, s.Release())
	img = layer.draw(20, 20)
	assert.Equal(t, 20, img.Bounds().Dx(), "a released surface draws as a blank layer")
}

func TestEffectLayer_Renders(t *testing.T) {
	test.NewApp()

	layer := NewEffectLayer(fyne.NewSize(50, 50))
	w := test.NewWindow(layer)
	defer w.Close()

	w.Resize(fyne.NewSize(100, 100))
	assert.Equal(t, fyne.NewSize(0, 0), layer.MinSize())
	assert.NotNil(t, test.WidgetRenderer(layer))
}
