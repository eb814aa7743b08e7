package service

import (
	"context"

	"cargotrack/internal/cargo/models"
)

// Tracker operations take the caller's tracker explicitly. A session owns its
// tracker, but watching registers the tracker on shared entities, so every
// change to its watch sets or view runs under the model lock.

// WatchItem adds an item to t's watch set.
func (s *Service) WatchItem(_ context.Context, t *models.Tracker, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}
	return t.AddItem(item)
}

// UnwatchItem removes an item from t's watch set. Items deleted since they
// were watched are found through the watch set itself.
func (s *Service) UnwatchItem(_ context.Context, t *models.Tracker, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := t.WatchedItem(itemID); ok {
		return t.RemoveItem(item)
	}
	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}
	return t.RemoveItem(item)
}

// WatchContainer adds a container to t's watch set.
func (s *Service) WatchContainer(_ context.Context, t *models.Tracker, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.containers.Get(cid)
	if err != nil {
		return err
	}
	return t.AddContainer(c)
}

// UnwatchContainer removes a container from t's watch set.
func (s *Service) UnwatchContainer(_ context.Context, t *models.Tracker, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.containers.Get(cid)
	if err != nil {
		return err
	}
	return t.RemoveContainer(c)
}

// SetView replaces t's view rectangle.
func (s *Service) SetView(_ context.Context, t *models.Tracker, rect models.ViewRect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.SetView(rect.Top, rect.Left, rect.Bottom, rect.Right)
}

// ClearView removes t's view rectangle.
func (s *Service) ClearView(_ context.Context, t *models.Tracker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.ClearView()
}

// StatList reports the status of every watched item visible through t's view.
func (s *Service) StatList(_ context.Context, t *models.Tracker) ([]models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.StatList()
}

// DescribeTracker returns t's JSON representation.
func (s *Service) DescribeTracker(_ context.Context, t *models.Tracker) models.TrackerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.Describe()
}

// UpdateTracker changes t's description and/or owner.
func (s *Service) UpdateTracker(_ context.Context, t *models.Tracker, updates map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.Update(updates)
}

// ReleaseTracker deletes t, unregistering it from everything it watches.
// Releasing twice is a no-op.
func (s *Service) ReleaseTracker(_ context.Context, t *models.Tracker) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Delete()
}
