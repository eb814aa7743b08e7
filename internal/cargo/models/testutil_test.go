package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingSubscriber remembers every update it receives.
type recordingSubscriber struct {
	calls []Observable
	err   error
}

func (r *recordingSubscriber) Updated(source Observable) error {
	r.calls = append(r.calls, source)
	return r.err
}

// panickingSubscriber fails loudly on every update.
type panickingSubscriber struct{}

func (*panickingSubscriber) Updated(Observable) error {
	panic("boom")
}

// sliceSubscriber is a value type that cannot be a map key.
type sliceSubscriber []int

func (sliceSubscriber) Updated(Observable) error { return nil }

// fakeHolder stands in for a container from an item's point of view.
type fakeHolder struct {
	id       string
	state    ItemState
	stateErr error
	loc      Location
	released []Cargo
}

func (h *fakeHolder) ID() string                 { return h.id }
func (h *fakeHolder) State() (ItemState, error)  { return h.state, h.stateErr }
func (h *fakeHolder) Location() (Location, bool) { return h.loc, true }
func (h *fakeHolder) Release(c Cargo)            { h.released = append(h.released, c) }

// fakeCargo stands in for an item from a container's point of view.
type fakeCargo struct {
	id                 string
	setContainerCalls  []Holder
	updatedCalls       int
	setContainerResult error
}

func (c *fakeCargo) ID() string { return c.id }

func (c *fakeCargo) SetContainer(h Holder) error {
	c.setContainerCalls = append(c.setContainerCalls, h)
	return c.setContainerResult
}

func (c *fakeCargo) Updated() { c.updatedCalls++ }

var errSubscriber = errors.New("subscriber failed")

func newTestItem(t *testing.T, id string) *Item {
	t.Helper()
	item, err := NewItem(id, ItemFields{
		Sender:    "Test Sender",
		Recipient: "Test Recipient",
		Address:   "Test Address",
		Owner:     "Test Owner",
	})
	require.NoError(t, err)
	return item
}

func newTestContainer(t *testing.T, id, ctype string, lon, lat float64) *Container {
	t.Helper()
	c, err := NewContainer(id, ContainerFields{Description: "container " + id, Type: ctype}, Location{Lon: lon, Lat: lat})
	require.NoError(t, err)
	return c
}

func newTestTracker(t *testing.T, opts ...TrackerOption) *Tracker {
	t.Helper()
	trk, err := NewTracker("TRK1", TrackerFields{Description: "My Tracker", Owner: "user1"}, opts...)
	require.NoError(t, err)
	return trk
}
