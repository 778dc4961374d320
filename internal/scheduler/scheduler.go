// Package scheduler drives per-frame effect loops on a frame host.
//
// Every effect owns one Scheduler. A loop started with Start runs one Step per
// host frame until the step returns false, the loop is cancelled, or the step panics.
// Whatever the cause, the loop's OnStop callback runs exactly once after the last tick,
// which is where effects release their surfaces.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// Step advances a loop by one frame. frame counts from zero.
// Returning false finishes the loop.
type Step func(frame int) bool

// StopReason tells why a loop ended.
type StopReason int

const (
	// StopCompleted means the step returned false.
	StopCompleted StopReason = iota
	// StopCancelled means Cancel was called.
	StopCancelled
	// StopPanicked means the step panicked.
	StopPanicked
)

func (r StopReason) String() string {
	switch r {
	case StopCompleted:
		return "completed"
	case StopCancelled:
		return "cancelled"
	case StopPanicked:
		return "panicked"
	default:
		return fmt.Sprintf("stop(%d)", int(r))
	}
}

// Option configures a loop.
type Option func(*Token)

// WithOnStop registers fn to run once when the loop ends.
func WithOnStop(fn func(StopReason)) Option {
	return func(t *Token) { t.onStop = fn }
}

// Token identifies one started loop. It is the loop's cancellation handle.
type Token struct {
	sched  *Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	frames atomic.Int64
	detach func()
	onStop func(StopReason)
}

// Done is closed once the loop has stopped and its OnStop callback returned.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Frames returns the number of ticks the loop ran.
func (t *Token) Frames() int {
	return int(t.frames.Load())
}

// Context is cancelled as soon as the loop is asked to stop.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Scheduler runs at most one loop at a time on a frame host.
//
// Thread-safety: Start, Cancel and IsActive may be called from any goroutine,
// but Cancel must not be called from inside a Step of the same scheduler.
type Scheduler struct {
	host   ports.FrameHost
	logger *slog.Logger
	name   string

	mu     sync.Mutex // guards active
	active *Token

	tickMu sync.Mutex // held while a step runs
}

// New creates a scheduler named name on host.
func New(host ports.FrameHost, name string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		host:   host,
		logger: logger,
		name:   name,
	}
}

// Start begins a loop. It fails with domain.ErrSchedulerActive while a previous loop
// has not stopped.
func (s *Scheduler) Start(step Step, opts ...Option) (*Token, error) {
	if step == nil {
		return nil, domain.NewValidationError("step", nil, "step cannot be nil")
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("start %s loop: %w", s.name, domain.ErrSchedulerActive)
	}
	ctx, cancel := context.WithCancel(context.Background())
	tok := &Token{
		sched:  s,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(tok)
	}
	s.active = tok
	s.mu.Unlock()

	// Ticks wait for the detach handle to be recorded.
	s.tickMu.Lock()
	tok.detach = s.host.Attach(func() { s.tick(tok, step) })
	s.tickMu.Unlock()

	s.logger.Debug("loop started", slog.String("loop", s.name))
	return tok, nil
}

func (s *Scheduler) tick(tok *Token, step Step) {
	// A frame that arrives while the previous one still runs is dropped.
	if !s.tickMu.TryLock() {
		return
	}
	defer s.tickMu.Unlock()

	if tok.ctx.Err() != nil {
		s.finish(tok, StopCancelled)
		return
	}

	frame := int(tok.frames.Add(1)) - 1
	reason, more := s.runStep(step, frame)
	if !more {
		s.finish(tok, reason)
	}
}

func (s *Scheduler) runStep(step Step, frame int) (reason StopReason, more bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("loop step panicked",
				slog.String("loop", s.name),
				slog.Int("frame", frame),
				slog.Any("panic", r))
			reason, more = StopPanicked, false
		}
	}()
	return StopCompleted, step(frame)
}

// finish tears a loop down once. Callers hold tickMu.
func (s *Scheduler) finish(tok *Token, reason StopReason) {
	tok.once.Do(func() {
		tok.cancel()
		if tok.detach != nil {
			tok.detach()
		}

		s.mu.Lock()
		if s.active == tok {
			s.active = nil
		}
		s.mu.Unlock()

		if tok.onStop != nil {
			tok.onStop(reason)
		}
		close(tok.done)

		s.logger.Debug("loop stopped",
			slog.String("loop", s.name),
			slog.String("reason", reason.String()),
			slog.Int("frames", tok.Frames()))
	})
}

// Cancel stops the loop identified by tok. It is idempotent, accepts nil and
// tokens of loops that already finished, and returns only after any in-flight
// tick has returned and OnStop has run.
func (s *Scheduler) Cancel(tok *Token) {
	if tok == nil || tok.sched != s {
		return
	}
	tok.cancel()

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.finish(tok, StopCancelled)
}

// IsActive reports whether the loop identified by tok is still running.
func (s *Scheduler) IsActive(tok *Token) bool {
	if tok == nil || tok.sched != s {
		return false
	}
	select {
	case <-tok.done:
		return false
	default:
		return true
	}
}

// Running reports whether any loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}
