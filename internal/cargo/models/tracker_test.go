package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "cargotrack/pkg/domain-errors"
)

type delivery struct {
	source Observable
	id     string
}

type TrackerSuite struct {
	suite.Suite
	tracker   *Tracker
	delivered []delivery
	sinkErr   error
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.delivered = nil
	s.sinkErr = nil
	s.tracker = newTestTracker(s.T(), WithSink(func(_ *Tracker, source Observable, id string) error {
		s.delivered = append(s.delivered, delivery{source: source, id: id})
		return s.sinkErr
	}))
}

func (s *TrackerSuite) TestNewTracker() {
	_, err := NewTracker("", TrackerFields{Description: "d", Owner: "o"})
	s.Equal("tid not provided", err.Error())
	_, err = NewTracker("T", TrackerFields{Owner: "o"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = NewTracker("T", TrackerFields{Description: "d"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *TrackerSuite) TestWatchingItems() {
	item := newTestItem(s.T(), "CI00000001")
	truck := newTestContainer(s.T(), "TRUCK1", "Truck", 5, 5)

	s.Require().NoError(s.tracker.AddItem(item))
	s.Require().NoError(s.tracker.AddItem(item))
	s.Equal([]string{"CI00000001"}, s.tracker.WatchedItemIDs())
	s.Equal(1, item.SubscriberCount())

	s.Run("container movement reaches item watchers", func() {
		s.Require().NoError(truck.Load(item))
		s.Require().NoError(truck.SetLocation(6, 6))

		s.Require().Len(s.delivered, 2)
		for _, d := range s.delivered {
			s.Equal("CI00000001", d.id)
			s.Same(item, d.source)
		}
	})

	s.Run("remove stops notifications", func() {
		s.delivered = nil
		s.Require().NoError(s.tracker.RemoveItem(item))
		s.Require().NoError(truck.SetLocation(7, 7))

		s.Empty(s.delivered)
		s.Zero(item.SubscriberCount())
	})

	s.Run("removing an unwatched item is a no-op", func() {
		s.NoError(s.tracker.RemoveItem(item))
	})
}

func (s *TrackerSuite) TestWatchingContainers() {
	hub := newTestContainer(s.T(), "HUB1", "Hub", 1, 1)
	s.Require().NoError(s.tracker.AddContainer(hub))
	s.Equal([]string{"HUB1"}, s.tracker.WatchedContainerIDs())

	s.Require().NoError(hub.Update(map[string]string{"description": "main hub"}))

	s.Require().Len(s.delivered, 1)
	s.Equal("HUB1", s.delivered[0].id)

	s.Require().NoError(s.tracker.RemoveContainer(hub))
	s.Zero(hub.SubscriberCount())
}

func (s *TrackerSuite) TestViewFiltering() {
	s.Require().NoError(s.tracker.SetView(30, 0, 0, 30))

	inside := newTestContainer(s.T(), "IN", "Truck", 10, 10)
	outside := newTestContainer(s.T(), "OUT", "Truck", 50, 50)
	corner := newTestContainer(s.T(), "EDGE", "Truck", 0, 0)
	s.Require().NoError(s.tracker.AddContainer(inside, outside, corner))

	s.Run("updates outside the view are dropped", func() {
		s.Require().NoError(outside.SetLocation(51, 51))
		s.Empty(s.delivered)
	})

	s.Run("updates inside the view are delivered", func() {
		s.Require().NoError(inside.SetLocation(11, 11))
		s.Require().Len(s.delivered, 1)
		s.Equal("IN", s.delivered[0].id)
	})

	s.Run("edges are inclusive", func() {
		s.delivered = nil
		s.Require().NoError(corner.SetLocation(30, 30))
		s.Require().NoError(corner.SetLocation(0, 0))
		s.Len(s.delivered, 2)
	})

	s.Run("location-less items pass the filter", func() {
		s.delivered = nil
		loose := newTestItem(s.T(), "CI00000002")
		s.Require().NoError(s.tracker.AddItem(loose))

		s.Require().NoError(loose.Complete())

		s.Len(s.delivered, 1)
		s.False(s.tracker.InView(loose))
	})

	s.Run("clearing the view delivers everything", func() {
		s.delivered = nil
		s.Require().NoError(s.tracker.ClearView())
		s.Require().NoError(outside.SetLocation(52, 52))
		s.Len(s.delivered, 1)
		s.True(s.tracker.InView(outside))
	})
}

func (s *TrackerSuite) TestStatList() {
	near := newTestContainer(s.T(), "NEAR", "Hub", 10, 10)
	far := newTestContainer(s.T(), "FAR", "Truck", 50, 50)
	a := newTestItem(s.T(), "CI00000010")
	b := newTestItem(s.T(), "CI00000011")
	c := newTestItem(s.T(), "CI00000012")
	s.Require().NoError(near.Load(a))
	s.Require().NoError(far.Load(b))
	s.Require().NoError(s.tracker.AddItem(a, b, c))

	s.Run("without a view every item is listed", func() {
		list, err := s.tracker.StatList()
		s.Require().NoError(err)
		s.Require().Len(list, 3)
		s.Equal(StateWaiting, list[0].State)
		s.Equal("NEAR", *list[0].ContainerID)
		s.Equal(Location{Lon: 10, Lat: 10}, *list[0].Location)
		s.Nil(list[2].Location)
		s.Nil(list[2].ContainerID)
	})

	s.Run("view hides far and location-less items", func() {
		s.Require().NoError(s.tracker.SetView(30, 0, 0, 30))
		list, err := s.tracker.StatList()
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal("CI00000010", list[0].ID)
	})

	s.Run("encodes null for missing location", func() {
		data, err := json.Marshal(Status{ID: "CI1", State: StateAccepted})
		s.Require().NoError(err)
		s.JSONEq(`{"id":"CI1","state":"accepted","location":null,"container_id":null}`, string(data))
	})
}

func (s *TrackerSuite) TestSinkFailureIsContained() {
	s.sinkErr = errors.New("queue closed")
	hub := newTestContainer(s.T(), "HUB1", "Hub", 1, 1)
	s.Require().NoError(s.tracker.AddContainer(hub))

	s.NoError(hub.SetLocation(2, 2))
	s.Len(s.delivered, 1)
}

func (s *TrackerSuite) TestUpdate() {
	s.Require().NoError(s.tracker.Update(map[string]string{"description": "Night shift", "owner": "user2"}))
	s.Equal(TrackerFields{Description: "Night shift", Owner: "user2"}, s.tracker.Fields())

	err := s.tracker.Update(map[string]string{"view": "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownField))

	err = s.tracker.Update(map[string]string{"owner": ""})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *TrackerSuite) TestDelete() {
	item := newTestItem(s.T(), "CI00000020")
	hub := newTestContainer(s.T(), "HUB1", "Hub", 1, 1)
	s.Require().NoError(s.tracker.AddItem(item))
	s.Require().NoError(s.tracker.AddContainer(hub))
	s.Require().NoError(s.tracker.SetView(10, 0, 0, 10))

	s.tracker.Delete()

	s.True(s.tracker.Deleted())
	s.Zero(item.SubscriberCount())
	s.Zero(hub.SubscriberCount())
	s.Empty(s.tracker.WatchedItemIDs())

	s.Run("mutations are rejected", func() {
		s.True(dErrors.HasCode(s.tracker.AddItem(item), dErrors.CodeDeleted))
		s.True(dErrors.HasCode(s.tracker.AddContainer(hub), dErrors.CodeDeleted))
		s.True(dErrors.HasCode(s.tracker.SetView(1, 0, 0, 1), dErrors.CodeDeleted))
		s.True(dErrors.HasCode(s.tracker.ClearView(), dErrors.CodeDeleted))
		s.True(dErrors.HasCode(s.tracker.Updated(hub), dErrors.CodeDeleted))
		_, err := s.tracker.StatList()
		s.True(dErrors.HasCode(err, dErrors.CodeDeleted))
	})

	s.Run("deleting twice is a no-op", func() {
		s.NotPanics(func() { s.tracker.Delete() })
	})

	s.Run("describe still works", func() {
		view := s.tracker.Describe()
		s.True(view.Deleted)
		s.Equal("TRK1", view.Tid)
		s.Empty(view.TrackedItems)
		s.NotNil(view.ViewRect)
	})
}

func (s *TrackerSuite) TestDeleteWithDeletedTargets() {
	item := newTestItem(s.T(), "CI00000030")
	s.Require().NoError(s.tracker.AddItem(item))
	item.Delete()

	s.NotPanics(func() { s.tracker.Delete() })
	s.Empty(s.tracker.WatchedItemIDs())
}

func (s *TrackerSuite) TestRemoveDeletedTargets() {
	item := newTestItem(s.T(), "CI00000031")
	truck := newTestContainer(s.T(), "TRUCK31", "Truck", 1, 1)
	s.Require().NoError(s.tracker.AddItem(item))
	s.Require().NoError(s.tracker.AddContainer(truck))
	item.Delete()
	s.Require().NoError(truck.Delete())

	s.Run("deleted item is still found by id", func() {
		found, ok := s.tracker.WatchedItem("CI00000031")
		s.Require().True(ok)
		s.Same(item, found)
		_, ok = s.tracker.WatchedItem("CI99999999")
		s.False(ok)
	})

	s.Run("remove drops both without error", func() {
		s.NoError(s.tracker.RemoveItem(item))
		s.NoError(s.tracker.RemoveContainer(truck))
		s.Empty(s.tracker.WatchedItemIDs())
		s.Empty(s.tracker.WatchedContainerIDs())
		list, err := s.tracker.StatList()
		s.Require().NoError(err)
		s.Empty(list)
	})
}

func (s *TrackerSuite) TestDescribe() {
	item := newTestItem(s.T(), "CI00000040")
	s.Require().NoError(s.tracker.AddItem(item))
	s.Require().NoError(s.tracker.SetView(30, 0, 0, 30))

	data, err := json.Marshal(s.tracker.Describe())
	s.Require().NoError(err)
	s.JSONEq(`{"deleted":false,"description":"My Tracker","owner":"user1","tid":"TRK1",
		"tracked_containers":[],"tracked_items":["CI00000040"],"view_rect":[30,0,0,30]}`, string(data))
}
