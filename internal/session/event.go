package session

import (
	"encoding/json"
	"time"

	"cargotrack/internal/cargo/models"
)

const kindGeneric = "generic"

// Event is one queued tracker notification. It is written to the wire as
//
//	EVENT {"when": <unix seconds>, "obj": [<kind>, <id>, <value>]}
//
// where value is the item state for cargo, the [lon, lat] location for
// containers and null for trackers.
type Event struct {
	When  time.Time
	Kind  string
	ID    *string
	Value any
}

func (e Event) MarshalJSON() ([]byte, error) {
	var id any
	if e.ID != nil {
		id = *e.ID
	}
	return json.Marshal(struct {
		When float64 `json:"when"`
		Obj  [3]any  `json:"obj"`
	}{
		When: float64(e.When.UnixNano()) / float64(time.Second),
		Obj:  [3]any{e.Kind, id, e.Value},
	})
}

// newEvent describes source as seen by tracker t. id is the id the tracker
// resolved for source.
func newEvent(now time.Time, t *models.Tracker, source models.Observable, id string) Event {
	ev := Event{When: now, Kind: kindGeneric}
	switch src := source.(type) {
	case *models.Item:
		ev.Kind = string(models.KindCargo)
		ev.ID = &id
		ev.Value = src.State()
	case *models.Container:
		ev.Kind = string(models.KindContainer)
		ev.ID = &id
		if loc, ok := src.Location(); ok {
			ev.Value = loc
		}
	case *models.Tracker:
		tid := t.ID()
		ev.Kind = string(models.KindTracker)
		ev.ID = &tid
	}
	return ev
}
