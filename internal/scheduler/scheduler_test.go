package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
	"github.com/tejashwikalptaru/vaporfx/internal/testutil"
)

func newTestScheduler(t *testing.T) (*Scheduler, *ManualHost) {
	t.Helper()
	host := NewManualHost()
	return New(host, "test", logger.NewTestLogger()), host
}

func TestScheduler_StartRunsStepPerFrame(t *testing.T) {
	s, host := newTestScheduler(t)

	var frames []int
	tok, err := s.Start(func(frame int) bool {
		frames = append(frames, frame)
		return true
	})
	require.NoError(t, err)

	host.Advance(3)

	assert.Equal(t, []int{0, 1, 2}, frames)
	assert.Equal(t, 3, tok.Frames())
	assert.True(t, s.IsActive(tok))
	assert.True(t, s.Running())
}

func TestScheduler_StepReturningFalseFinishes(t *testing.T) {
	s, host := newTestScheduler(t)

	var reason StopReason = -1
	tok, err := s.Start(func(frame int) bool {
		return frame < 4
	}, WithOnStop(func(r StopReason) { reason = r }))
	require.NoError(t, err)

	host.Advance(10)

	assert.Equal(t, 5, tok.Frames())
	assert.Equal(t, StopCompleted, reason)
	assert.False(t, s.IsActive(tok))
	assert.Zero(t, host.Attached())

	select {
	case <-tok.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestScheduler_StartWhileActive(t *testing.T) {
	s, host := newTestScheduler(t)

	tok, err := s.Start(func(int) bool { return true })
	require.NoError(t, err)

	_, err = s.Start(func(int) bool { return true })
	require.ErrorIs(t, err, domain.ErrSchedulerActive)

	s.Cancel(tok)
	_, err = s.Start(func(int) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 1, host.Attached())
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	s, host := newTestScheduler(t)

	var stops int
	var ran int
	tok, err := s.Start(func(int) bool {
		ran++
		return true
	}, WithOnStop(func(r StopReason) {
		stops++
		assert.Equal(t, StopCancelled, r)
	}))
	require.NoError(t, err)

	host.Advance(2)
	s.Cancel(tok)
	s.Cancel(tok)
	s.Cancel(nil)
	host.Advance(5)

	assert.Equal(t, 2, ran)
	assert.Equal(t, 1, stops)
	assert.False(t, s.IsActive(tok))
	assert.Error(t, tok.Context().Err())
}

func TestScheduler_CancelAfterCompletion(t *testing.T) {
	s, host := newTestScheduler(t)

	var reasons []StopReason
	tok, err := s.Start(func(int) bool { return false },
		WithOnStop(func(r StopReason) { reasons = append(reasons, r) }))
	require.NoError(t, err)

	host.Advance(1)
	s.Cancel(tok)

	assert.Equal(t, []StopReason{StopCompleted}, reasons)
}

func TestScheduler_CancelForeignToken(t *testing.T) {
	a, host := newTestScheduler(t)
	b := New(host, "other", nil)

	tok, err := a.Start(func(int) bool { return true })
	require.NoError(t, err)

	b.Cancel(tok)
	assert.True(t, a.IsActive(tok))
	assert.False(t, b.IsActive(tok))
	a.Cancel(tok)
}

func TestScheduler_PanickingStepStops(t *testing.T) {
	s, host := newTestScheduler(t)

	var reason StopReason = -1
	tok, err := s.Start(func(frame int) bool {
		if frame == 1 {
			panic("broken step")
		}
		return true
	}, WithOnStop(func(r StopReason) { reason = r }))
	require.NoError(t, err)

	require.NotPanics(t, func() { host.Advance(3) })
	assert.Equal(t, StopPanicked, reason)
	assert.False(t, s.IsActive(tok))
	assert.Equal(t, 2, tok.Frames())
}

func TestScheduler_StartNilStep(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Start(nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestManualHost_DetachDuringFrame(t *testing.T) {
	host := NewManualHost()

	var second int
	var detachSecond func()
	host.Attach(func() { detachSecond() })
	detachSecond = host.Attach(func() { second++ })

	host.Advance(2)
	assert.Zero(t, second)
	assert.Equal(t, 1, host.Attached())
	assert.Equal(t, 2, host.Frames())
}

func TestManualHost_AdvanceUntil(t *testing.T) {
	host := NewManualHost()
	var n int
	host.Attach(func() { n++ })

	ran := host.AdvanceUntil(func() bool { return n >= 7 }, 100)
	assert.Equal(t, 7, ran)

	ran = host.AdvanceUntil(func() bool { return false }, 3)
	assert.Equal(t, 3, ran)
}

func TestTickerHost_RunsLoop(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	host := NewTickerHost(240)
	defer host.Close()

	s := New(host, "ticker", logger.NewTestLogger())

	var ticks atomic.Int64
	tok, err := s.Start(func(frame int) bool {
		ticks.Add(1)
		return frame < 4
	})
	require.NoError(t, err)

	select {
	case <-tok.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not finish")
	}
	assert.Equal(t, int64(5), ticks.Load())
}

func TestTickerHost_CancelWaitsForTick(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	host := NewTickerHost(240)
	defer host.Close()

	s := New(host, "ticker", nil)

	entered := make(chan struct{})
	var inStep atomic.Bool
	var once atomic.Bool
	tok, err := s.Start(func(int) bool {
		inStep.Store(true)
		if once.CompareAndSwap(false, true) {
			close(entered)
			time.Sleep(20 * time.Millisecond)
		}
		inStep.Store(false)
		return true
	})
	require.NoError(t, err)

	<-entered
	s.Cancel(tok)
	assert.False(t, inStep.Load())
	assert.False(t, s.IsActive(tok))
}
