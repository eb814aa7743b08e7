package service

import (
	"context"
	"fmt"

	"cargotrack/internal/audit"
	"cargotrack/internal/cargo/models"
	dErrors "cargotrack/pkg/domain-errors"
)

// ContainerSpec describes a container to create.
type ContainerSpec struct {
	ID          string
	Description string
	Type        string
	Lon         float64
	Lat         float64
}

// CreateContainer registers a new, empty container.
func (s *Service) CreateContainer(ctx context.Context, spec ContainerSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.containers.Get(spec.ID); err == nil {
		return errContainerExists
	}
	c, err := models.NewContainer(spec.ID,
		models.ContainerFields{Description: spec.Description, Type: spec.Type},
		models.Location{Lon: spec.Lon, Lat: spec.Lat},
		s.containerOptions()...,
	)
	if err != nil {
		return err
	}
	if err := s.containers.Add(c); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventContainerCreated, "container_id", spec.ID, "detail", spec.Type)
	if s.metrics != nil {
		s.metrics.IncrementContainersCreated()
	}
	s.publishModelSize()
	return nil
}

// ListContainers returns every container in registration order.
func (s *Service) ListContainers(_ context.Context) []models.ContainerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	containers := s.containers.List()
	out := make([]models.ContainerView, 0, len(containers))
	for _, c := range containers {
		out = append(out, c.View())
	}
	return out
}

// Container returns the view of one container.
func (s *Service) Container(_ context.Context, cid string) (models.ContainerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.containers.Get(cid)
	if err != nil {
		return models.ContainerView{}, err
	}
	return c.View(), nil
}

// SetLocation moves a container. The change cascades to watchers of the
// container and of every item it holds.
func (s *Service) SetLocation(ctx context.Context, cid string, lon, lat float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.containers.Get(cid)
	if err != nil {
		return err
	}
	if err := c.SetLocation(lon, lat); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventContainerMoved, "container_id", cid, "detail", fmt.Sprintf("%g,%g", lon, lat))
	return nil
}

// UpdateContainer changes description and/or type.
func (s *Service) UpdateContainer(ctx context.Context, cid string, updates map[string]string) (models.ContainerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.containers.Get(cid)
	if err != nil {
		return models.ContainerView{}, err
	}
	if err := c.Update(updates); err != nil {
		return models.ContainerView{}, err
	}
	s.logAudit(ctx, audit.EventContainerUpdated, "container_id", cid)
	return c.View(), nil
}

// DeleteContainer unloads every held item, deletes the container and drops it
// from the registry.
func (s *Service) DeleteContainer(ctx context.Context, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.containers.Delete(cid); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventContainerDeleted, "container_id", cid)
	s.publishModelSize()
	return nil
}

var errContainerExists = dErrors.New(dErrors.CodeConflict, "container exists")
