package service

import (
	"context"

	"cargotrack/internal/audit"
	"cargotrack/internal/cargo/models"
	dErrors "cargotrack/pkg/domain-errors"
)

// CreateItem creates an accepted item and returns its tracking id.
func (s *Service) CreateItem(ctx context.Context, fields models.ItemFields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Create(fields)
	if err != nil {
		return "", err
	}
	s.logAudit(ctx, audit.EventItemCreated, "item_id", item.ID())
	if s.metrics != nil {
		s.metrics.IncrementItemsCreated()
	}
	s.publishModelSize()
	return item.ID(), nil
}

// ListItems returns every item in the directory in creation order. DeleteItem
// drops items from the directory, so deleted items are not listed; the only
// exception is a record saved as deleted and restored from a snapshot.
func (s *Service) ListItems(_ context.Context) []models.ItemView {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items.List()
	out := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, item.View())
	}
	return out
}

// Item returns the view of one item.
func (s *Service) Item(_ context.Context, id string) (models.ItemView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(id)
	if err != nil {
		return models.ItemView{}, err
	}
	return item.View(), nil
}

// LoadItem puts an item into a container. An item held elsewhere is refused;
// loading into its current container reports already=true and changes nothing.
func (s *Service) LoadItem(ctx context.Context, itemID, cid string) (already bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, errItem := s.items.Get(itemID)
	c, errContainer := s.containers.Get(cid)
	if errItem != nil || errContainer != nil {
		return false, dErrors.New(dErrors.CodeNotFound, "Unknown item or container")
	}
	switch current := item.ContainerID(); current {
	case "":
	case cid:
		return true, nil
	default:
		return false, dErrors.Newf(dErrors.CodeConflict, "Item already in container %s", current)
	}
	if err := c.Load(item); err != nil {
		return false, err
	}
	s.logAudit(ctx, audit.EventItemLoaded, "item_id", itemID, "container_id", cid)
	return false, nil
}

// UnloadItem takes an item out of whatever container holds it.
func (s *Service) UnloadItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}
	cid := item.ContainerID()
	if cid == "" {
		return errNotInContainer
	}
	c, err := s.containers.Get(cid)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "holder missing from registry")
	}
	if err := c.Unload(item); err != nil {
		return dErrors.Wrap(err, dErrors.CodeOf(err), "Unload failed: "+err.Error())
	}
	s.logAudit(ctx, audit.EventItemUnloaded, "item_id", itemID, "container_id", cid)
	return nil
}

// MoveItem transfers an item from its current container into cid with a
// single container change. Moving into the current container reports
// already=true.
func (s *Service) MoveItem(ctx context.Context, itemID, cid string) (already bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, errItem := s.items.Get(itemID)
	target, errContainer := s.containers.Get(cid)
	if errItem != nil || errContainer != nil {
		return false, dErrors.New(dErrors.CodeNotFound, "Unknown item or container")
	}
	current := item.ContainerID()
	if current == "" {
		return false, errNotInContainer
	}
	if current == cid {
		return true, nil
	}
	source, err := s.containers.Get(current)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "holder missing from registry")
	}
	if err := source.Move([]models.Cargo{item}, target); err != nil {
		return false, err
	}
	s.logAudit(ctx, audit.EventItemMoved, "item_id", itemID, "container_id", cid, "detail", "from "+current)
	return false, nil
}

// CompleteItem marks an item delivered. Completing a complete item reports
// already=true.
func (s *Service) CompleteItem(ctx context.Context, itemID string) (already bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return false, err
	}
	if item.State() == models.StateComplete {
		return true, nil
	}
	if err := item.Complete(); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeOf(err), "Complete failed: "+err.Error())
	}
	s.logAudit(ctx, audit.EventItemCompleted, "item_id", itemID)
	return false, nil
}

// UpdateItem changes named item fields.
func (s *Service) UpdateItem(ctx context.Context, itemID string, updates map[string]string) (models.ItemView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.items.Get(itemID)
	if err != nil {
		return models.ItemView{}, err
	}
	if err := item.Update(updates); err != nil {
		return models.ItemView{}, err
	}
	s.logAudit(ctx, audit.EventItemUpdated, "item_id", itemID)
	return item.View(), nil
}

// DeleteItem deletes an item that has no attached users.
func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.items.Delete(itemID); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventItemDeleted, "item_id", itemID)
	if s.metrics != nil {
		s.metrics.IncrementItemsDeleted()
	}
	return nil
}

// Attach records user as attached to an item, blocking its deletion.
func (s *Service) Attach(ctx context.Context, itemID, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.items.Attach(itemID, user); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventItemAttached, "item_id", itemID, "detail", user)
	return nil
}

// Detach removes an attachment.
func (s *Service) Detach(ctx context.Context, itemID, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.items.Detach(itemID, user); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventItemDetached, "item_id", itemID, "detail", user)
	return nil
}

// ListAttached returns the items user is attached to.
func (s *Service) ListAttached(_ context.Context, user string) ([]models.ItemView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.items.ListAttached(user)
	if err != nil {
		return nil, err
	}
	out := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		out = append(out, item.View())
	}
	return out, nil
}

var errNotInContainer = dErrors.New(dErrors.CodeInvalidState, "Item not in a container")
