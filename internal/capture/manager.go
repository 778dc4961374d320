package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/ports"
)

// Manager enforces that at most one session is open at a time.
// The application creates exactly one Manager.
type Manager struct {
	provider ports.AudioDeviceProvider
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewManager creates a manager opening sessions on provider.
func NewManager(provider ports.AudioDeviceProvider, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		provider: provider,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Open opens a session for intent. It fails with domain.ErrCaptureBusy, wrapped in an
// *domain.AcquisitionError, while another session is open.
func (m *Manager) Open(ctx context.Context, intent domain.CaptureIntent) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, domain.NewAcquisitionError(intent, "open",
			"session for "+m.current.Intent().String()+" still open", domain.ErrCaptureBusy)
	}
	return m.openLocked(ctx, intent)
}

// Switch closes the open session, if any, and then opens one for intent.
// A teardown warning from the old session is logged, not returned.
func (m *Manager) Switch(ctx context.Context, intent domain.CaptureIntent) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	return m.openLocked(ctx, intent)
}

func (m *Manager) openLocked(ctx context.Context, intent domain.CaptureIntent) (*Session, error) {
	s, err := Open(ctx, m.provider, intent, m.opts)
	if err != nil {
		m.logger.Error("capture acquisition failed",
			slog.String("intent", intent.String()),
			slog.Any("error", err))
		return nil, err
	}
	m.current = s
	return s, nil
}

// Close closes the open session. It returns domain.ErrNoActiveCapture when there is none,
// or the session's teardown warnings.
func (m *Manager) Close() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, domain.ErrNoActiveCapture
	}
	s := m.current
	return s, m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.current == nil {
		return nil
	}
	s := m.current
	m.current = nil
	return s.Close()
}

// Current returns the open session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Intent returns the intent of the open session, or domain.IntentNone.
func (m *Manager) Intent() domain.CaptureIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return domain.IntentNone
	}
	return m.current.Intent()
}
