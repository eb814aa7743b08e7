package directory

import (
	"cargotrack/internal/cargo/models"
	dErrors "cargotrack/pkg/domain-errors"
)

// Registry maps container ids to containers. Like Directory it relies on the
// shared model's lock.
type Registry struct {
	containers map[string]*models.Container
	order      []string
}

// NewRegistry constructs an empty container registry.
func NewRegistry() *Registry {
	return &Registry{containers: make(map[string]*models.Container)}
}

// Add registers c under its id. A restored deleted container keeps its id
// reserved until Delete drops the entry.
func (r *Registry) Add(c *models.Container) error {
	if c == nil {
		return dErrors.New(dErrors.CodeValidation, "container not provided")
	}
	if _, exists := r.containers[c.ID()]; exists {
		return dErrors.New(dErrors.CodeConflict, "container exists")
	}
	r.containers[c.ID()] = c
	r.order = append(r.order, c.ID())
	return nil
}

// Get looks up a container by id.
func (r *Registry) Get(id string) (*models.Container, error) {
	c, ok := r.containers[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "Unknown container")
	}
	return c, nil
}

// List returns every container in registration order.
func (r *Registry) List() []*models.Container {
	out := make([]*models.Container, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.containers[id])
	}
	return out
}

// Len returns the number of registered containers.
func (r *Registry) Len() int {
	return len(r.containers)
}

// Delete unloads and deletes the container, then drops it from the registry.
func (r *Registry) Delete(id string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := c.Delete(); err != nil {
		return err
	}
	delete(r.containers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
