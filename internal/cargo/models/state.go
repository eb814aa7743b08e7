package models

import dErrors "cargotrack/pkg/domain-errors"

// ItemState is the lifecycle state of a cargo item.
type ItemState string

const (
	StateAccepted  ItemState = "accepted"
	StateWaiting   ItemState = "waiting"
	StateInTransit ItemState = "in transit"
	StateComplete  ItemState = "complete"
	StateDeleted   ItemState = "deleted"
)

// assignableStates are the states an update may set directly. Deleted is
// reachable only through Delete.
var assignableStates = map[ItemState]bool{
	StateAccepted:  true,
	StateWaiting:   true,
	StateInTransit: true,
	StateComplete:  true,
}

// ParseItemState validates an externally supplied state.
func ParseItemState(s string) (ItemState, error) {
	st := ItemState(s)
	if !assignableStates[st] {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid state '%s'", s)
	}
	return st, nil
}

func (s ItemState) String() string {
	return string(s)
}

// Kind names the entity type behind an Observable.
type Kind string

const (
	KindCargo     Kind = "cargo"
	KindContainer Kind = "container"
	KindTracker   Kind = "tracker"
)
