package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"cargotrack/internal/cargo/models"
	"cargotrack/internal/platform/metrics"
	"cargotrack/pkg/platform/sentinel"
)

const (
	// DefaultUser is the session user until USER is issued.
	DefaultUser = "guest"
	// DefaultWaitTimeout bounds WAIT_EVENTS.
	DefaultWaitTimeout = 5 * time.Second

	trackerDescription = "session tracker"
	maxLineBytes       = 64 * 1024
)

// Session is one client connection: a private tracker, a FIFO event queue and
// the notification agent that drains it.
//
// Two goroutines serve a session. The command goroutine (Serve) reads lines,
// dispatches them and writes one response per line. The agent goroutine waits
// on cond for queued events and writes one EVENT line per event. Both write
// through writeLine, so lines never interleave mid-line.
//
// Locking: the tracker's sink runs inside model cascades, i.e. with the model
// lock held, and takes only mu. Nothing holding mu ever takes the model lock.
// No network write happens under either lock.
type Session struct {
	id       string
	conn     net.Conn
	tracker  *models.Tracker
	model    Model
	openedAt time.Time

	mu      sync.Mutex
	cond    *sync.Cond
	events  []Event
	counter uint64
	alive   bool
	user    string

	writeMu      sync.Mutex
	writeTimeout time.Duration
	waitTimeout  time.Duration

	dispatcher *Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	agentDone chan struct{}
	closeOnce sync.Once
}

// Info is a point-in-time description of a session.
type Info struct {
	ID         string    `json:"id"`
	User       string    `json:"user"`
	RemoteAddr string    `json:"remote_addr"`
	TrackerID  string    `json:"tracker_id"`
	OpenedAt   time.Time `json:"opened_at"`
	Pending    int       `json:"pending_events"`
	Events     uint64    `json:"events_total"`
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithWaitTimeout overrides DefaultWaitTimeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// WithWriteTimeout bounds every write to the connection. Zero means no deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.writeTimeout = d
	}
}

// WithDispatcher replaces the default command dispatcher.
func WithDispatcher(d *Dispatcher) Option {
	return func(s *Session) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session for conn with its own tracker. The session does not
// read or write until Serve is called.
func New(id, trackerID string, conn net.Conn, model Model, opts ...Option) (*Session, error) {
	if conn == nil {
		return nil, errors.New("connection is required")
	}
	if model == nil {
		return nil, errors.New("model is required")
	}
	s := &Session{
		id:          id,
		conn:        conn,
		model:       model,
		openedAt:    time.Now(),
		alive:       true,
		user:        DefaultUser,
		waitTimeout: DefaultWaitTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		agentDone:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatcher == nil {
		s.dispatcher = NewDispatcher(WithDispatcherLogger(s.logger), WithDispatcherMetrics(s.metrics))
	}

	tracker, err := models.NewTracker(trackerID,
		models.TrackerFields{Description: trackerDescription, Owner: DefaultUser},
		models.WithSink(s.onTrackerUpdate),
		models.WithTrackerLogger(s.logger.With("session_id", id)),
	)
	if err != nil {
		return nil, err
	}
	s.tracker = tracker
	return s, nil
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) Tracker() *models.Tracker   { return s.tracker }
func (s *Session) RemoteAddr() string         { return remoteAddr(s.conn) }
func (s *Session) AgentDone() <-chan struct{} { return s.agentDone }

// User returns the current session user.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setUser(name string) {
	s.mu.Lock()
	s.user = name
	s.mu.Unlock()
}

// Alive reports whether the session is still serving.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Info describes the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:         s.id,
		User:       s.user,
		RemoteAddr: remoteAddr(s.conn),
		TrackerID:  s.tracker.ID(),
		OpenedAt:   s.openedAt,
		Pending:    len(s.events),
		Events:     s.counter,
	}
}

// Serve runs the session until the peer disconnects, QUIT is received or the
// connection fails. It starts the notification agent and always closes the
// session before returning.
func (s *Session) Serve(ctx context.Context) error {
	go s.runAgent()
	defer s.Close(ctx)

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := s.dispatcher.Handle(ctx, s, line)
		if err := s.writeLine(reply.Line()); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if reply.Close {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("read command: %w", err)
	}
	return nil
}

// Close deletes the session tracker, closes the connection, marks the session
// dead and wakes every waiter. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.model.ReleaseTracker(ctx, s.tracker)
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("close connection", "session_id", s.id, "error", err)
		}
		s.mu.Lock()
		s.alive = false
		s.cond.Broadcast()
		s.mu.Unlock()
	})
}

// Interrupt marks the session dead and closes the connection. A Serve blocked
// on a read or inside WAIT_EVENTS returns and then runs the full Close.
func (s *Session) Interrupt() {
	s.markDead()
}

// onTrackerUpdate is the tracker sink. It runs inside a model cascade.
func (s *Session) onTrackerUpdate(t *models.Tracker, source models.Observable, id string) error {
	ev := newEvent(s.now(), t, source, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return sentinel.ErrClosed
	}
	s.events = append(s.events, ev)
	s.counter++
	s.cond.Broadcast()
	if s.metrics != nil {
		s.metrics.IncrementEventsEnqueued()
	}
	return nil
}

// runAgent delivers queued events in FIFO order until the session dies.
func (s *Session) runAgent() {
	defer close(s.agentDone)
	for {
		s.mu.Lock()
		for len(s.events) == 0 && s.alive {
			s.cond.Wait()
		}
		if !s.alive {
			s.mu.Unlock()
			return
		}
		ev := s.events[0]
		s.events[0] = Event{}
		s.events = s.events[1:]
		s.mu.Unlock()

		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Warn("encode event", "session_id", s.id, "error", err)
			continue
		}
		if err := s.writeLine("EVENT " + string(payload)); err != nil {
			s.logger.Debug("event delivery failed", "session_id", s.id, "error", err)
			s.markDead()
			return
		}
		if s.metrics != nil {
			s.metrics.IncrementEventsDelivered()
		}
	}
}

// WaitEvents blocks until an event is queued after entry, the timeout passes
// or the session dies. It reports whether an event arrived.
func (s *Session) WaitEvents(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = s.waitTimeout
	}
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.counter
	for s.counter == start && s.alive && time.Now().Before(deadline) {
		s.cond.Wait()
	}
	observed := s.counter != start

	if s.metrics != nil {
		switch {
		case observed:
			s.metrics.IncrementWaitOutcome("event")
		case !s.alive:
			s.metrics.IncrementWaitOutcome("closed")
		default:
			s.metrics.IncrementWaitOutcome("timeout")
		}
	}
	return observed
}

func (s *Session) markDead() {
	s.mu.Lock()
	s.alive = false
	s.cond.Broadcast()
	s.mu.Unlock()
	_ = s.conn.Close()
}

func (s *Session) writeLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(s.conn, line+"\n")
	return err
}

func remoteAddr(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
