package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// Justification: the breaker decides whether audit events reach the broker;
// an off-by-one in either threshold either floods a dead broker or stops
// publishing after a single hiccup.
type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) TestNewBreakerIsClosed() {
	b := New("audit-kafka")
	s.False(b.IsOpen())
	s.Equal(StateClosed, b.State())
	s.Equal("closed", b.State().String())
	s.Equal("audit-kafka", b.Name())
	s.True(b.Allow())
}

func (s *BreakerSuite) TestOpening() {
	s.Run("opens on the threshold failure", func() {
		b := New("audit-kafka", WithFailureThreshold(3))

		for range 2 {
			useFallback, change := b.RecordFailure()
			s.False(useFallback)
			s.False(change.Opened)
		}

		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.True(change.Opened)
		s.True(b.IsOpen())
	})

	s.Run("a success resets the failure streak", func() {
		b := New("audit-kafka", WithFailureThreshold(3))
		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()

		b.RecordFailure()
		b.RecordFailure()
		s.False(b.IsOpen())

		b.RecordFailure()
		s.True(b.IsOpen())
	})

	s.Run("failures while open report no new transition", func() {
		b := New("audit-kafka", WithFailureThreshold(1))
		b.RecordFailure()

		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.False(change.Opened)
	})
}

func (s *BreakerSuite) TestClosing() {
	s.Run("closes after the success threshold", func() {
		b := New("audit-kafka", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		usePrimary, change := b.RecordSuccess()
		s.False(usePrimary)
		s.False(change.Closed)
		s.True(b.IsOpen())

		usePrimary, change = b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.False(b.IsOpen())
	})

	s.Run("a failure restarts the success streak", func() {
		b := New("audit-kafka", WithFailureThreshold(1), WithSuccessThreshold(3))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()

		b.RecordSuccess()
		b.RecordSuccess()
		s.True(b.IsOpen())
		b.RecordSuccess()
		s.False(b.IsOpen())
	})

	s.Run("reset", func() {
		b := New("audit-kafka", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		s.Equal(StateClosed, b.State())
	})
}

func (s *BreakerSuite) TestAllowAfterCooldown() {
	now := time.Unix(0, 0)
	b := New("audit-kafka",
		WithFailureThreshold(1),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return now }),
	)

	b.RecordFailure()
	s.False(b.Allow())

	now = now.Add(10 * time.Second)
	s.True(b.Allow(), "one trial call after the cooldown")
	s.False(b.Allow(), "the next call waits for another cooldown")
	s.Equal("open", b.State().String())
}
