package particles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
	"github.com/tejashwikalptaru/vaporfx/internal/testutil"
)

func newTestField(t *testing.T, w, h int, seed uint64) (*Field, *testutil.RecordingSurface, *scheduler.ManualHost) {
	t.Helper()
	host := scheduler.NewManualHost()
	surface := testutil.NewRecordingSurface(1, 1)
	f, err := Initialize(host, surface, w, h, Options{Seed: seed, Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	return f, surface, host
}

func TestParticleCount_Clamp(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{100, 100, 60},
		{800, 600, 60},
		{1000, 1000, 125},
		{1280, 800, 128},
		{2000, 2000, 180},
		{1, 1, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParticleCount(tt.w, tt.h), "%dx%d", tt.w, tt.h)
	}
}

func TestInitialize_SizesSurface(t *testing.T) {
	f, surface, _ := newTestField(t, 1000, 1000, 1)

	w, h := surface.Size()
	assert.Equal(t, 1000, w)
	assert.Equal(t, 1000, h)
	assert.Equal(t, 125, f.Len())

	for _, p := range f.Particles() {
		assert.GreaterOrEqual(t, p.Y, 1000.0)
		assert.Less(t, p.Y, 1020.0)
		assert.LessOrEqual(t, p.Size, p.MaxSize)
		assert.Greater(t, p.Alpha, 0.0)
		assert.LessOrEqual(t, p.Alpha, 0.6)
	}
}

func TestInitialize_Errors(t *testing.T) {
	host := scheduler.NewManualHost()

	_, err := Initialize(host, nil, 100, 100, Options{})
	var serr *domain.RenderSurfaceError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, domain.ErrSurfaceUnavailable)

	_, err = Initialize(host, testutil.NewRecordingSurface(1, 1), 0, 100, Options{})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestField_TickInvariants(t *testing.T) {
	f, _, _ := newTestField(t, 640, 480, 42)
	n := f.Len()

	for frame := 1; frame <= 3000; frame++ {
		f.Tick(frame)
		for _, p := range f.Particles() {
			require.GreaterOrEqual(t, p.Alpha, 0.0)
			require.LessOrEqual(t, p.Alpha, 1.0)
			require.Greater(t, p.Size, 0.0)
			require.LessOrEqual(t, p.Size, p.MaxSize+p.Growth)
			require.GreaterOrEqual(t, p.Y, -2*p.Size)
		}
		require.Equal(t, n, f.Len())
	}
}

func TestField_TickRecyclesInPlace(t *testing.T) {
	f, _, _ := newTestField(t, 320, 200, 7)
	before := f.Particles()

	// A particle rises at least 0.5 px per frame, so 1000 frames cover the height several times.
	for frame := 1; frame <= 1000; frame++ {
		f.Tick(frame)
	}
	after := f.Particles()

	recycled := 0
	for i := range before {
		if before[i].SwayOffset != after[i].SwayOffset {
			recycled++
		}
	}
	assert.Equal(t, len(before), len(after))
	assert.Positive(t, recycled)
}

func TestField_TickDeterministic(t *testing.T) {
	a, _, _ := newTestField(t, 800, 600, 99)
	b, _, _ := newTestField(t, 800, 600, 99)

	for frame := 1; frame <= 500; frame++ {
		a.Tick(frame)
		a.Render()
		b.Tick(frame)
	}
	assert.Equal(t, a.Particles(), b.Particles())

	c, _, _ := newTestField(t, 800, 600, 100)
	assert.NotEqual(t, a.Particles()[0], c.Particles()[0])
}

func TestField_RenderDrawsFuzz(t *testing.T) {
	f, surface, _ := newTestField(t, 400, 300, 3)

	f.Render()

	circles, _, presents := surface.Counts()
	assert.Equal(t, f.Len()*4, circles)
	assert.Equal(t, 1, presents)
	assert.Equal(t, 1, surface.Clears)
	assert.LessOrEqual(t, surface.MaxAlpha, 1.0)
}

func TestField_StartAndDispose(t *testing.T) {
	f, surface, host := newTestField(t, 400, 300, 5)

	require.NoError(t, f.Start())
	require.Error(t, f.Start())
	host.Advance(5)

	_, _, presents := surface.Counts()
	assert.Equal(t, 5, presents)
	assert.True(t, f.Running())

	require.NoError(t, f.Dispose())
	assert.True(t, surface.Released())
	assert.False(t, f.Running())
	assert.Zero(t, host.Attached())

	host.Advance(5)
	_, _, presents = surface.Counts()
	assert.Equal(t, 5, presents)

	require.NoError(t, f.Dispose())
	assert.Equal(t, 1, surface.Releases)
	assert.ErrorIs(t, f.Start(), domain.ErrEffectDisposed)
}

func TestField_DisposeReleaseFailure(t *testing.T) {
	f, surface, _ := newTestField(t, 400, 300, 5)
	surface.FailRelease = true

	err := f.Dispose()
	var warn *domain.TeardownWarning
	require.ErrorAs(t, err, &warn)
	assert.Equal(t, "ambient", warn.Component)
}

func TestField_ResizeKeepsParticles(t *testing.T) {
	f, surface, _ := newTestField(t, 400, 300, 11)
	before := f.Particles()

	f.Resize(1600, 1200)

	w, h := f.Bounds()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)
	sw, sh := surface.Size()
	assert.Equal(t, 1600, sw)
	assert.Equal(t, 1200, sh)
	assert.Equal(t, before, f.Particles())

	// An external resize (e.g. window) is picked up too.
	surface.Resize(300, 200)
	w, h = f.Bounds()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}

func TestField_DetachHandsOverSurface(t *testing.T) {
	f, surface, host := newTestField(t, 400, 300, 13)
	require.NoError(t, f.Start())
	host.Advance(2)

	s, snap, err := f.Detach()
	require.NoError(t, err)
	assert.Same(t, surface, s)
	require.NotNil(t, snap)
	assert.Equal(t, 400, snap.Bounds().Dx())
	assert.False(t, surface.Released())
	assert.Zero(t, host.Attached())

	_, _, err = f.Detach()
	assert.ErrorIs(t, err, domain.ErrEffectDisposed)
	require.NoError(t, f.Dispose())
	assert.False(t, surface.Released())
}
