package models

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const itemIDPrefix = "CI"

// ItemIDs mints tracking ids for every cargo item created in the process.
var ItemIDs = NewSequence(1)

// Sequence is a monotonically increasing counter safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	next uint64
}

// NewSequence returns a sequence whose first value is start.
func NewSequence(start uint64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the current value and advances the sequence.
func (s *Sequence) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return n
}

// AdvancePast guarantees that future values are greater than n. The sequence
// never moves backwards so ids minted earlier in the process stay unique.
func (s *Sequence) AdvancePast(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n+1 > s.next {
		s.next = n + 1
	}
}

// Peek returns the value the next call to Next will produce.
func (s *Sequence) Peek() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// FormatItemID renders a tracking id: "CI" followed by an 8-digit zero-padded counter.
func FormatItemID(n uint64) string {
	return fmt.Sprintf("%s%08d", itemIDPrefix, n)
}

// ParseItemIDSuffix extracts the numeric suffix of a tracking id.
func ParseItemIDSuffix(id string) (uint64, bool) {
	if !strings.HasPrefix(id, itemIDPrefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(id[len(itemIDPrefix):], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
