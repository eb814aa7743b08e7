package persistence

import (
	"context"
	"time"
)

// Store persists a single snapshot of the model.
//
// Error Contract:
//   - Load returns an error wrapping sentinel.ErrNotFound when nothing was saved yet
//   - Decode problems in individual records are not errors; they are counted in Snapshot.Skipped
//   - Infrastructure failures are returned wrapped with context
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// Snapshot is the flat record set written on save and read on load.
type Snapshot struct {
	Items      []ItemRecord      `json:"items" cbor:"items"`
	Containers []ContainerRecord `json:"containers" cbor:"containers"`

	// SavedAt is set by stores that track it; it is not part of the payload.
	SavedAt time.Time `json:"-" cbor:"-"`
	// Skipped counts records that could not be decoded on load.
	Skipped int `json:"-" cbor:"-"`
}

// ItemRecord is the persisted form of a cargo item. Keys match the item's
// JSON view so a saved file reads like LIST_ITEMS output.
type ItemRecord struct {
	Container *string `json:"container" cbor:"container"`
	Deleted   bool    `json:"deleted" cbor:"deleted"`
	ID        string  `json:"id" cbor:"id"`
	Owner     string  `json:"owner" cbor:"owner"`
	RecipAddr string  `json:"recipaddr" cbor:"recipaddr"`
	RecipNam  string  `json:"recipnam" cbor:"recipnam"`
	SenderNam string  `json:"sendernam" cbor:"sendernam"`
	State     string  `json:"state" cbor:"state"`
}

// ContainerRecord is the persisted form of a container.
type ContainerRecord struct {
	Cid         string    `json:"cid" cbor:"cid"`
	Deleted     bool      `json:"deleted" cbor:"deleted"`
	Description string    `json:"description" cbor:"description"`
	Items       []string  `json:"items" cbor:"items"`
	Loc         []float64 `json:"loc" cbor:"loc"`
	Type        string    `json:"type" cbor:"type"`
}

// ContainerID returns the saved container id or "".
func (r ItemRecord) ContainerID() string {
	if r.Container == nil {
		return ""
	}
	return *r.Container
}
