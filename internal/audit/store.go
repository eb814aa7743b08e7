package audit

import (
	"context"
	"errors"
	"sync"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists recently stored events, newest last.
type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// DefaultRingSize bounds the in-memory store.
const DefaultRingSize = 1024

// RingStore keeps the most recent events in memory for the admin surface.
type RingStore struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewRingStore constructs a ring holding up to size events.
func NewRingStore(size int) *RingStore {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingStore{events: make([]Event, size)}
}

func (s *RingStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = event
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// ListRecent returns up to limit of the most recent events, oldest first. A
// non-positive limit returns everything held.
func (s *RingStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Event
	if s.full {
		all = append(all, s.events[s.next:]...)
	}
	all = append(all, s.events[:s.next]...)

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// Clear drops every held event.
func (s *RingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.events)
	s.next = 0
	s.full = false
}

// MultiStore appends to every store in order. All stores are attempted; the
// joined error reports each failure.
type MultiStore []Store

func (m MultiStore) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
