package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/vaporfx/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
	"github.com/tejashwikalptaru/vaporfx/internal/particles"
	"github.com/tejashwikalptaru/vaporfx/internal/scheduler"
	"github.com/tejashwikalptaru/vaporfx/internal/testutil"
)

// Helper to create a test effects service
func newTestEffectsService() (*EffectsService, *scheduler.ManualHost, *eventLog) {
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	host := scheduler.NewManualHost()
	events := newEventLog(bus)

	service := NewEffectsService(log, bus, host, particles.Options{Seed: 7})
	return service, host, events
}

func TestEffectsService_StartAmbient(t *testing.T) {
	service, host, events := newTestEffectsService()
	defer service.Shutdown()

	surface := testutil.NewRecordingSurface(400, 300)
	require.NoError(t, service.StartAmbient(surface))
	assert.True(t, service.IsAmbientRunning())

	host.Advance(5)
	assert.Equal(t, 5, surface.Presents)

	started := events.of(domain.EventAmbientStarted)
	require.Len(t, started, 1)
	e := started[0].(domain.AmbientStartedEvent)
	assert.Equal(t, particles.ParticleCount(400, 300), e.Particles)
	assert.Equal(t, 400, e.Width)
	assert.Equal(t, 300, e.Height)

	err := service.StartAmbient(testutil.NewRecordingSurface(10, 10))
	assert.ErrorIs(t, err, domain.ErrAmbientRunning)
}

func TestEffectsService_StartAmbient_Failures(t *testing.T) {
	service, host, events := newTestEffectsService()
	defer service.Shutdown()

	var serr *domain.RenderSurfaceError
	require.ErrorAs(t, service.StartAmbient(nil), &serr)

	var verr *domain.ValidationError
	require.ErrorAs(t, service.StartAmbient(testutil.NewRecordingSurface(0, 0)), &verr)

	assert.False(t, service.IsAmbientRunning())
	assert.Zero(t, host.Attached())
	assert.Len(t, events.of(domain.EventEffectError), 2)
}

func TestEffectsService_StopAmbient(t *testing.T) {
	service, host, events := newTestEffectsService()

	surface := testutil.NewRecordingSurface(200, 200)
	require.NoError(t, service.StartAmbient(surface))
	host.Advance(2)

	require.NoError(t, service.StopAmbient())
	assert.False(t, service.IsAmbientRunning())
	assert.True(t, surface.Released())
	assert.Zero(t, host.Attached())
	assert.Len(t, events.of(domain.EventAmbientStopped), 1)

	assert.ErrorIs(t, service.StopAmbient(), domain.ErrAmbientNotRunning)

	host.Advance(3)
	assert.Equal(t, 2, surface.Presents)
}

func TestEffectsService_StopAmbient_TeardownWarning(t *testing.T) {
	service, _, _ := newTestEffectsService()

	surface := testutil.NewRecordingSurface(200, 200)
	surface.FailRelease = true
	require.NoError(t, service.StartAmbient(surface))

	var warn *domain.TeardownWarning
	require.ErrorAs(t, service.StopAmbient(), &warn)
	assert.Equal(t, "ambient", warn.Component)
	assert.False(t, service.IsAmbientRunning())
}

func TestEffectsService_TriggerEvaporation_FromAmbient(t *testing.T) {
	service, host, events := newTestEffectsService()
	defer service.Shutdown()

	surface := testutil.NewRecordingSurface(300, 200)
	require.NoError(t, service.StartAmbient(surface))
	host.Advance(3)

	require.NoError(t, service.TriggerEvaporation(nil))
	assert.False(t, service.IsAmbientRunning())
	assert.True(t, service.IsEvaporating())
	assert.False(t, surface.Released(), "the burst owns the surface now")

	frames := host.AdvanceUntil(func() bool { return !service.IsEvaporating() }, 500)
	assert.Equal(t, 67, frames)
	assert.True(t, surface.Released())
	assert.Equal(t, 1, surface.Releases)
	assert.Zero(t, host.Attached())

	// The pre-burst frame fades out during the first ticks.
	require.NotEmpty(t, surface.Restores)
	assert.InDelta(t, 0.97, surface.Restores[0], 1e-9)

	completed := events.of(domain.EventEvaporationCompleted)
	require.Len(t, completed, 1)
	result := completed[0].(domain.EvaporationCompletedEvent).Result
	assert.Equal(t, domain.BurstResult{Frames: 67, Reason: domain.BurstFaded}, result)

	assert.Equal(t, []domain.EventType{
		domain.EventAmbientStarted,
		domain.EventEvaporationStarted,
		domain.EventEvaporationCompleted,
	}, events.types())
}

func TestEffectsService_TriggerEvaporation_OwnSurface(t *testing.T) {
	service, host, _ := newTestEffectsService()
	defer service.Shutdown()

	ambient := testutil.NewRecordingSurface(300, 200)
	require.NoError(t, service.StartAmbient(ambient))

	burstSurface := testutil.NewRecordingSurface(300, 200)
	require.NoError(t, service.TriggerEvaporation(burstSurface))
	assert.True(t, service.IsAmbientRunning(), "a burst on its own surface leaves the field alone")

	host.AdvanceUntil(func() bool { return !service.IsEvaporating() }, 500)
	assert.True(t, burstSurface.Released())
	assert.False(t, ambient.Released())
	assert.True(t, service.IsAmbientRunning())
}

func TestEffectsService_TriggerEvaporation_NotRunning(t *testing.T) {
	service, _, events := newTestEffectsService()

	assert.ErrorIs(t, service.TriggerEvaporation(nil), domain.ErrAmbientNotRunning)
	assert.Empty(t, events.types())
}

func TestEffectsService_TriggerEvaporation_Retrigger(t *testing.T) {
	service, host, events := newTestEffectsService()
	defer service.Shutdown()

	first := testutil.NewRecordingSurface(100, 100)
	second := testutil.NewRecordingSurface(100, 100)

	require.NoError(t, service.TriggerEvaporation(first))
	host.Advance(10)
	require.NoError(t, service.TriggerEvaporation(second))

	assert.True(t, first.Released())
	assert.False(t, second.Released())
	assert.True(t, service.IsEvaporating())

	completed := events.of(domain.EventEvaporationCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, domain.BurstResult{Frames: 10, Reason: domain.BurstCancelled},
		completed[0].(domain.EvaporationCompletedEvent).Result)

	host.AdvanceUntil(func() bool { return !service.IsEvaporating() }, 500)
	assert.True(t, second.Released())
	assert.Len(t, events.of(domain.EventEvaporationCompleted), 2)
}

func TestEffectsService_TriggerEvaporation_Concurrent(t *testing.T) {
	service, host, events := newTestEffectsService()

	const triggers = 16
	surfaces := make([]*testutil.RecordingSurface, triggers)
	for i := range surfaces {
		surfaces[i] = testutil.NewRecordingSurface(80, 60)
	}

	var wg sync.WaitGroup
	for _, surface := range surfaces {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, service.TriggerEvaporation(surface))
		}()
	}
	wg.Wait()

	live := 0
	for _, surface := range surfaces {
		if !surface.Released() {
			live++
		}
	}
	assert.Equal(t, 1, live, "only the last burst keeps playing")
	assert.Equal(t, 1, host.Attached())

	require.NoError(t, service.Shutdown())
	for i, surface := range surfaces {
		assert.True(t, surface.Released(), "surface %d", i)
	}
	assert.Zero(t, host.Attached())
	assert.Len(t, events.of(domain.EventEvaporationStarted), triggers)
	assert.Len(t, events.of(domain.EventEvaporationCompleted), triggers)
}

func TestEffectsService_AmbientFailureKeepsBurst(t *testing.T) {
	service, host, _ := newTestEffectsService()
	defer service.Shutdown()

	require.NoError(t, service.TriggerEvaporation(testutil.NewRecordingSurface(100, 100)))
	host.Advance(5)

	require.Error(t, service.StartAmbient(nil))
	assert.True(t, service.IsEvaporating())

	host.Advance(5)
	assert.True(t, service.IsEvaporating())
}

func TestEffectsService_Shutdown(t *testing.T) {
	service, host, events := newTestEffectsService()

	ambient := testutil.NewRecordingSurface(200, 100)
	burst := testutil.NewRecordingSurface(200, 100)
	require.NoError(t, service.StartAmbient(ambient))
	require.NoError(t, service.TriggerEvaporation(burst))
	host.Advance(4)

	require.NoError(t, service.Shutdown())
	assert.True(t, ambient.Released())
	assert.True(t, burst.Released())
	assert.Zero(t, host.Attached())
	assert.False(t, service.IsEvaporating())
	assert.Len(t, events.of(domain.EventEvaporationCompleted), 1)

	require.NoError(t, service.Shutdown())
}

// TestEffectsService_TickerHost runs a full burst on a real ticking host.
func TestEffectsService_TickerHost(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	host := scheduler.NewTickerHost(480)
	defer host.Close()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	done := make(chan domain.BurstResult, 1)
	bus.Subscribe(domain.EventEvaporationCompleted, func(e domain.Event) {
		done <- e.(domain.EvaporationCompletedEvent).Result
	})

	service := NewEffectsService(log, bus, host, particles.Options{Seed: 1})
	surface := testutil.NewRecordingSurface(200, 100)
	require.NoError(t, service.StartAmbient(surface))
	require.NoError(t, service.TriggerEvaporation(nil))

	result := <-done
	assert.Equal(t, domain.BurstFaded, result.Reason)
	assert.True(t, surface.Released())
	require.NoError(t, service.Shutdown())
}
