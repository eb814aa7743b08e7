package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"cargotrack/internal/audit"
	"cargotrack/internal/platform/metrics"
)

// Manager owns the set of live sessions. It hands out tracker ids, keeps a
// registry for the admin surface and interrupts everything on shutdown.
type Manager struct {
	model      Model
	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	publisher  audit.Emitter
	sessOpts   []Option

	trackerSeq atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithManagerMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithManagerAudit emits session_opened and session_closed events.
func WithManagerAudit(publisher audit.Emitter) ManagerOption {
	return func(m *Manager) {
		m.publisher = publisher
	}
}

// WithSessionOptions is applied to every session the manager creates.
func WithSessionOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.sessOpts = append(m.sessOpts, opts...)
	}
}

// NewManager creates a manager serving sessions against model.
func NewManager(model Model, opts ...ManagerOption) *Manager {
	m := &Manager{
		model:    model,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.dispatcher = NewDispatcher(WithDispatcherLogger(m.logger), WithDispatcherMetrics(m.metrics))
	return m
}

var errManagerClosed = errors.New("session manager closed")

func (m *Manager) nextTrackerID() string {
	return fmt.Sprintf("TRK%06d", m.trackerSeq.Add(1))
}

// Open creates and registers a session for conn without serving it.
func (m *Manager) Open(conn net.Conn) (*Session, error) {
	opts := append([]Option{
		WithLogger(m.logger),
		WithMetrics(m.metrics),
		WithDispatcher(m.dispatcher),
	}, m.sessOpts...)

	s, err := New(uuid.NewString(), m.nextTrackerID(), conn, m.model, opts...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errManagerClosed
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SessionOpened()
	}
	return s, nil
}

// Handle serves conn until the session ends, then unregisters it.
func (m *Manager) Handle(ctx context.Context, conn net.Conn) {
	s, err := m.Open(conn)
	if err != nil {
		m.logger.ErrorContext(ctx, "session not opened", "remote_addr", remoteAddr(conn), "error", err)
		_ = conn.Close()
		return
	}
	audit.LogAudit(ctx, m.logger, m.publisher, audit.EventSessionOpened,
		"session_id", s.ID(), "user", s.User(), "detail", s.RemoteAddr(), "tracker_id", s.Tracker().ID())

	if err := s.Serve(ctx); err != nil {
		m.logger.DebugContext(ctx, "session ended with error", "session_id", s.ID(), "error", err)
	}
	m.remove(ctx, s)
}

func (m *Manager) remove(ctx context.Context, s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SessionClosed()
	}
	audit.LogAudit(ctx, m.logger, m.publisher, audit.EventSessionClosed,
		"session_id", s.ID(), "user", s.User(), "detail", s.RemoteAddr())
}

// Get returns the live session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List describes every live session, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(live))
	for _, s := range live {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].OpenedAt.Equal(infos[j].OpenedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].OpenedAt.Before(infos[j].OpenedAt)
	})
	return infos
}

// Kick interrupts one session. Its Serve loop then closes it.
func (m *Manager) Kick(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.Interrupt()
	return true
}

// CloseAll interrupts every live session and refuses new ones.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()
	for _, s := range live {
		s.Interrupt()
	}
}
