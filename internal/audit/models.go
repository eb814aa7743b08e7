package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted for every mutating command. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	// Subject is the item or container id the action applied to.
	Subject   string `json:"subject,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	User      string `json:"user,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Category groups audit actions by what they touched.
type Category string

const (
	CategoryCargo       Category = "cargo"
	CategoryContainer   Category = "container"
	CategorySession     Category = "session"
	CategoryPersistence Category = "persistence"
)

// Action names what happened.
type Action string

const (
	// Item events
	EventItemCreated   Action = "item_created"
	EventItemUpdated   Action = "item_updated"
	EventItemCompleted Action = "item_completed"
	EventItemDeleted   Action = "item_deleted"
	EventItemAttached  Action = "item_attached"
	EventItemDetached  Action = "item_detached"
	EventItemLoaded    Action = "item_loaded"
	EventItemUnloaded  Action = "item_unloaded"
	EventItemMoved     Action = "item_moved"

	// Container events
	EventContainerCreated Action = "container_created"
	EventContainerUpdated Action = "container_updated"
	EventContainerMoved   Action = "container_moved"
	EventContainerDeleted Action = "container_deleted"

	// Session events
	EventSessionOpened Action = "session_opened"
	EventSessionClosed Action = "session_closed"

	// Persistence events
	EventSnapshotSaved    Action = "snapshot_saved"
	EventSnapshotRestored Action = "snapshot_restored"
	EventSnapshotFailed   Action = "snapshot_failed"
)

var actionCategories = map[Action]Category{
	EventItemCreated:   CategoryCargo,
	EventItemUpdated:   CategoryCargo,
	EventItemCompleted: CategoryCargo,
	EventItemDeleted:   CategoryCargo,
	EventItemAttached:  CategoryCargo,
	EventItemDetached:  CategoryCargo,
	EventItemLoaded:    CategoryCargo,
	EventItemUnloaded:  CategoryCargo,
	EventItemMoved:     CategoryCargo,

	EventContainerCreated: CategoryContainer,
	EventContainerUpdated: CategoryContainer,
	EventContainerMoved:   CategoryContainer,
	EventContainerDeleted: CategoryContainer,

	EventSessionOpened: CategorySession,
	EventSessionClosed: CategorySession,

	EventSnapshotSaved:    CategoryPersistence,
	EventSnapshotRestored: CategoryPersistence,
	EventSnapshotFailed:   CategoryPersistence,
}

// Category returns the category of the action. Unknown actions are
// session-scoped.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategorySession
}
