package service

import (
	"context"
	"errors"
	"time"

	"cargotrack/internal/audit"
	"cargotrack/internal/cargo/directory"
	"cargotrack/internal/cargo/models"
	"cargotrack/internal/persistence"
	dErrors "cargotrack/pkg/domain-errors"
	"cargotrack/pkg/platform/sentinel"
)

// RestoreResult summarizes a Restore.
type RestoreResult struct {
	Items      int
	Containers int
	// Skipped counts records dropped as undecodable or invalid.
	Skipped int
	// Found is false when the store held no snapshot.
	Found bool
	// Failed is set when the snapshot could not be read or decoded. The model
	// is left as it was.
	Failed bool
}

// Snapshot captures every item and container as flat records.
func (s *Service) Snapshot(_ context.Context) *persistence.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() *persistence.Snapshot {
	snap := &persistence.Snapshot{
		Items:      make([]persistence.ItemRecord, 0, s.items.Len()),
		Containers: make([]persistence.ContainerRecord, 0, s.containers.Len()),
	}
	for _, c := range s.containers.List() {
		v := c.View()
		snap.Containers = append(snap.Containers, persistence.ContainerRecord{
			Cid:         v.Cid,
			Deleted:     v.Deleted,
			Description: v.Description,
			Items:       v.Items,
			Loc:         []float64{v.Loc.Lon, v.Loc.Lat},
			Type:        v.Type,
		})
	}
	for _, item := range s.items.List() {
		v := item.View()
		snap.Items = append(snap.Items, persistence.ItemRecord{
			Container: v.Container,
			Deleted:   v.Deleted,
			ID:        v.ID,
			Owner:     v.Owner,
			RecipAddr: v.RecipAddr,
			RecipNam:  v.RecipNam,
			SenderNam: v.SenderNam,
			State:     string(v.State),
		})
	}
	return snap
}

// Save writes a snapshot to the configured store. The records are captured
// under the lock; the write happens after it is released.
func (s *Service) Save(ctx context.Context) error {
	if s.store == nil {
		return dErrors.New(dErrors.CodeInvalidState, "no snapshot store configured")
	}
	start := time.Now()
	snap := s.Snapshot(ctx)

	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "failed to save state", "error", err)
		s.logAudit(ctx, audit.EventSnapshotFailed, "snapshot", "save", "detail", err.Error())
		if s.metrics != nil {
			s.metrics.IncrementSnapshotFailure("save")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save state")
	}
	if s.metrics != nil {
		s.metrics.ObserveSnapshot("save", start)
	}
	s.logAudit(ctx, audit.EventSnapshotSaved, "snapshot", "save",
		"items", len(snap.Items), "containers", len(snap.Containers))
	return nil
}

// Restore replaces the model with the stored snapshot.
//
// Containers are rebuilt first, then items under their saved ids, then item
// membership is relinked from each item's saved container id. Invalid records
// are skipped. The id sequence is advanced past the highest restored suffix.
// Restored entities have no subscribers. A missing, unreadable or corrupt
// snapshot leaves the model untouched and is not an error; failures are logged,
// counted and audited, and reported through RestoreResult.Failed.
func (s *Service) Restore(ctx context.Context) (RestoreResult, error) {
	if s.store == nil {
		return RestoreResult{}, dErrors.New(dErrors.CodeInvalidState, "no snapshot store configured")
	}
	start := time.Now()
	snap, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.InfoContext(ctx, "no saved state found, starting empty")
			return RestoreResult{}, nil
		}
		s.logger.ErrorContext(ctx, "failed to load state", "error", err)
		s.logAudit(ctx, audit.EventSnapshotFailed, "snapshot", "restore", "detail", err.Error())
		if s.metrics != nil {
			s.metrics.IncrementSnapshotFailure("restore")
		}
		return RestoreResult{Failed: true}, nil
	}

	s.mu.Lock()
	result := s.restoreLocked(snap)
	s.publishModelSize()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveSnapshot("restore", start)
		s.metrics.AddSnapshotSkipped(result.Skipped)
	}
	s.logAudit(ctx, audit.EventSnapshotRestored, "snapshot", "restore",
		"items", result.Items, "containers", result.Containers, "skipped", result.Skipped)
	return result, nil
}

func (s *Service) restoreLocked(snap *persistence.Snapshot) RestoreResult {
	result := RestoreResult{Found: true, Skipped: snap.Skipped}
	items := s.newDirectory()
	containers := directory.NewRegistry()

	for _, rec := range snap.Containers {
		c, err := s.restoreContainer(rec)
		if err == nil {
			err = containers.Add(c)
		}
		if err != nil {
			s.logger.Warn("skipping saved container", "container_id", rec.Cid, "error", err)
			result.Skipped++
			continue
		}
		result.Containers++
	}

	var maxSuffix uint64
	restored := make([]*models.Item, 0, len(snap.Items))
	for _, rec := range snap.Items {
		item, err := restoreItem(rec, items.ItemOptions())
		if err == nil {
			err = items.Insert(item)
		}
		if err != nil {
			s.logger.Warn("skipping saved item", "item_id", rec.ID, "error", err)
			result.Skipped++
			continue
		}
		if n, ok := models.ParseItemIDSuffix(rec.ID); ok && n > maxSuffix {
			maxSuffix = n
		}
		restored = append(restored, item)
		result.Items++
	}

	byID := make(map[string]persistence.ItemRecord, len(snap.Items))
	for _, rec := range snap.Items {
		byID[rec.ID] = rec
	}
	for _, item := range restored {
		cid := byID[item.ID()].ContainerID()
		if cid == "" || item.Deleted() {
			continue
		}
		c, err := containers.Get(cid)
		if err != nil || c.Deleted() {
			s.logger.Warn("saved container missing, item left unloaded", "item_id", item.ID(), "container_id", cid)
			continue
		}
		c.Adopt(item)
	}

	s.seq.AdvancePast(maxSuffix)
	s.items = items
	s.containers = containers
	return result
}

func (s *Service) restoreContainer(rec persistence.ContainerRecord) (*models.Container, error) {
	if len(rec.Loc) != 2 {
		return nil, dErrors.New(dErrors.CodeValidation, "loc must be a (long, latt) pair")
	}
	c, err := models.NewContainer(rec.Cid,
		models.ContainerFields{Description: rec.Description, Type: rec.Type},
		models.Location{Lon: rec.Loc[0], Lat: rec.Loc[1]},
		s.containerOptions()...,
	)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		if err := c.Delete(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func restoreItem(rec persistence.ItemRecord, opts []models.ItemOption) (*models.Item, error) {
	fields := models.ItemFields{
		Sender:    rec.SenderNam,
		Recipient: rec.RecipNam,
		Address:   rec.RecipAddr,
		Owner:     rec.Owner,
	}
	state := models.ItemState(rec.State)
	if state == models.StateDeleted {
		state = ""
	}
	return models.RestoreItem(rec.ID, fields, state, rec.Deleted || rec.State == string(models.StateDeleted),
		opts...)
}
