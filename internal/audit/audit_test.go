package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cargotrack/pkg/platform/circuit"
)

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, Event) error { return f.err }

// Justification: the publisher must never block command processing, and the
// worker must survive store failures.
type AuditSuite struct {
	suite.Suite
	ctx context.Context
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}

func (s *AuditSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *AuditSuite) TestPublisherFillsDefaults() {
	p := NewPublisher(1)
	s.Require().NoError(p.Emit(s.ctx, Event{Action: EventContainerMoved, Subject: "TRUCK1"}))

	event := <-p.Inbox()
	s.NotEqual(uuid.Nil, event.ID)
	s.False(event.Timestamp.IsZero())
	s.Equal(CategoryContainer, event.Category)
}

func (s *AuditSuite) TestPublisherDropsWhenFull() {
	var dropped []Event
	p := NewPublisher(1, WithDropHook(func(e Event) { dropped = append(dropped, e) }))

	s.Require().NoError(p.Emit(s.ctx, Event{Action: EventItemCreated}))
	err := p.Emit(s.ctx, Event{Action: EventItemDeleted})

	s.ErrorIs(err, ErrBufferFull)
	s.Require().Len(dropped, 1)
	s.Equal(EventItemDeleted, dropped[0].Action)
}

func (s *AuditSuite) TestActionCategory() {
	s.Equal(CategoryCargo, EventItemLoaded.Category())
	s.Equal(CategoryPersistence, EventSnapshotSaved.Category())
	s.Equal(CategorySession, Action("unknown").Category())
}

func (s *AuditSuite) TestRingStore() {
	s.Run("keeps the newest events", func() {
		ring := NewRingStore(3)
		for _, subject := range []string{"a", "b", "c", "d", "e"} {
			s.Require().NoError(ring.Append(s.ctx, Event{Subject: subject}))
		}

		all, err := ring.ListRecent(s.ctx, 0)
		s.Require().NoError(err)
		s.Equal([]string{"c", "d", "e"}, subjects(all))

		last, err := ring.ListRecent(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal([]string{"d", "e"}, subjects(last))
	})

	s.Run("partially filled", func() {
		ring := NewRingStore(4)
		s.Require().NoError(ring.Append(s.ctx, Event{Subject: "a"}))

		all, err := ring.ListRecent(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal([]string{"a"}, subjects(all))

		ring.Clear()
		all, err = ring.ListRecent(s.ctx, 10)
		s.Require().NoError(err)
		s.Empty(all)
	})
}

func (s *AuditSuite) TestMultiStore() {
	ring := NewRingStore(2)
	boom := errors.New("broker down")
	store := MultiStore{failingStore{err: boom}, ring}

	err := store.Append(s.ctx, Event{Subject: "x"})

	s.ErrorIs(err, boom)
	all, _ := ring.ListRecent(s.ctx, 0)
	s.Len(all, 1, "later stores still receive the event")
}

func (s *AuditSuite) TestWorker() {
	s.Run("persists queued events and flushes on cancel", func() {
		ring := NewRingStore(10)
		p := NewPublisher(10)
		w := NewWorker(ring, p.Inbox())
		ctx, cancel := context.WithCancel(s.ctx)

		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		s.Require().NoError(p.Emit(s.ctx, Event{Subject: "a"}))
		s.Require().NoError(p.Emit(s.ctx, Event{Subject: "b"}))
		s.Eventually(func() bool {
			all, _ := ring.ListRecent(s.ctx, 0)
			return len(all) == 2
		}, time.Second, 5*time.Millisecond)

		cancel()
		s.NoError(<-done)
	})

	s.Run("store failure is logged and the worker continues", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inbox := make(chan Event, 2)
		inbox <- Event{Action: EventItemCreated, Subject: "CI00000001"}
		close(inbox)

		w := NewWorker(failingStore{err: errors.New("nope")}, inbox, WithWorkerLogger(logger))

		s.NoError(w.Run(s.ctx))
		s.Contains(buf.String(), "audit append failed")
		s.Contains(buf.String(), "CI00000001")
	})
}

func (s *AuditSuite) TestLogAudit() {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewPublisher(1)

	LogAudit(s.ctx, logger, p, EventItemLoaded,
		"session_id", "sess-1",
		"user", "alice",
		"item_id", "CI00000001",
		"container_id", "HUB1",
	)

	event := <-p.Inbox()
	s.Equal("CI00000001", event.Subject)
	s.Equal("sess-1", event.SessionID)
	s.Equal("alice", event.User)
	s.Contains(buf.String(), "log_type=audit")
	s.Contains(buf.String(), "event=item_loaded")
}

func subjects(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Subject)
	}
	return out
}

func (s *AuditSuite) TestGuardedStore() {
	now := time.Unix(100, 0)
	breaker := circuit.New("kafka",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	remote := &flakyStore{err: errors.New("broker down")}
	var skipped int
	guarded := NewGuardedStore(remote, breaker, WithSkipHook(func(Event) { skipped++ }))

	s.Error(guarded.Append(s.ctx, Event{Subject: "a"}))
	s.Error(guarded.Append(s.ctx, Event{Subject: "b"}))
	s.True(breaker.IsOpen())

	s.NoError(guarded.Append(s.ctx, Event{Subject: "c"}), "open breaker skips the store")
	s.Equal(1, skipped)
	s.Equal(2, remote.calls)

	remote.err = nil
	now = now.Add(time.Minute)
	s.NoError(guarded.Append(s.ctx, Event{Subject: "d"}))
	s.Equal(3, remote.calls, "a trial call reaches the store after the cooldown")
	s.False(breaker.IsOpen())
}

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Append(context.Context, Event) error {
	f.calls++
	return f.err
}
