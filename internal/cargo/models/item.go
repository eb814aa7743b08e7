package models

import (
	"sort"
	"strings"

	dErrors "cargotrack/pkg/domain-errors"
)

// Holder is the container side of item membership, as seen by an item.
type Holder interface {
	ID() string
	// State returns the state the holder hands to the items it carries.
	State() (ItemState, error)
	Location() (Location, bool)
	// Release drops c from the holder's membership without notifying anyone.
	Release(c Cargo)
}

// Cargo is the item side of container membership, as seen by a container.
type Cargo interface {
	ID() string
	SetContainer(h Holder) error
	Updated()
}

// ItemFields are the caller-supplied fields of a cargo item.
type ItemFields struct {
	Sender    string
	Recipient string
	Address   string
	Owner     string
}

func (f ItemFields) validate() error {
	switch {
	case strings.TrimSpace(f.Sender) == "":
		return dErrors.New(dErrors.CodeValidation, "sendernam not provided")
	case strings.TrimSpace(f.Recipient) == "":
		return dErrors.New(dErrors.CodeValidation, "recipnam not provided")
	case strings.TrimSpace(f.Address) == "":
		return dErrors.New(dErrors.CodeValidation, "recipaddr not provided")
	case strings.TrimSpace(f.Owner) == "":
		return dErrors.New(dErrors.CodeValidation, "owner not provided")
	}
	return nil
}

// Item is a tracked parcel.
//
// Invariants:
//   - ID is immutable and assigned at construction
//   - Sender, recipient, address and owner are never empty
//   - State is StateDeleted iff the item has been deleted
//   - A deleted item rejects every mutation; it can still be read
//   - When the item has a holder, the holder lists it as a member
type Item struct {
	id          string
	fields      ItemFields
	state       ItemState
	holder      Holder
	subscribers orderedSet[Subscriber]
	deleted     bool
	report      FailureReporter
}

// ItemOption configures an Item.
type ItemOption func(*Item)

// WithItemReporter sets the reporter for failing subscribers.
func WithItemReporter(r FailureReporter) ItemOption {
	return func(i *Item) {
		i.report = r
	}
}

// NewItem constructs an accepted item with the given tracking id.
func NewItem(id string, fields ItemFields, opts ...ItemOption) (*Item, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tracking id not provided")
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}
	item := &Item{id: id, fields: fields, state: StateAccepted}
	for _, opt := range opts {
		opt(item)
	}
	return item, nil
}

// RestoreItem rebuilds a persisted item. The holder is linked separately by
// the container that lists it.
func RestoreItem(id string, fields ItemFields, state ItemState, deleted bool, opts ...ItemOption) (*Item, error) {
	item, err := NewItem(id, fields, opts...)
	if err != nil {
		return nil, err
	}
	if deleted {
		item.deleted = true
		item.state = StateDeleted
		return item, nil
	}
	if state != "" {
		st, err := ParseItemState(string(state))
		if err != nil {
			return nil, err
		}
		item.state = st
	}
	return item, nil
}

func (i *Item) ID() string           { return i.id }
func (i *Item) Kind() Kind           { return KindCargo }
func (i *Item) Fields() ItemFields   { return i.fields }
func (i *Item) State() ItemState     { return i.state }
func (i *Item) Deleted() bool        { return i.deleted }
func (i *Item) Holder() Holder       { return i.holder }
func (i *Item) SubscriberCount() int { return i.subscribers.len() }

// ContainerID returns the id of the current holder, or "".
func (i *Item) ContainerID() string {
	if i.holder == nil {
		return ""
	}
	return i.holder.ID()
}

// Location is the holder's location. Items outside a container have none.
func (i *Item) Location() (Location, bool) {
	if i.holder == nil {
		return Location{}, false
	}
	return i.holder.Location()
}

// SetContainer moves the item into h, or out of any container when h is nil.
// The new state comes from the holder; a failing state query keeps the
// prior state.
func (i *Item) SetContainer(h Holder) error {
	if i.deleted {
		return errItemDeleted
	}
	if prev := i.holder; prev != nil && prev != h {
		prev.Release(i)
	}
	i.holder = h
	if h == nil {
		if i.state != StateComplete {
			i.state = StateAccepted
		}
	} else if st, err := h.State(); err == nil && st != "" {
		i.state = st
	}
	i.Updated()
	return nil
}

// Complete marks the item delivered.
func (i *Item) Complete() error {
	if i.deleted {
		return errItemDeleted
	}
	i.state = StateComplete
	i.Updated()
	return nil
}

var itemUpdateFields = map[string]string{
	"sendernam":         "sender",
	"sender_name":       "sender",
	"recipnam":          "recipient",
	"recipient_name":    "recipient",
	"recipaddr":         "address",
	"recipient_address": "address",
	"owner":             "owner",
	"state":             "state",
}

// Update changes named fields. All keys are validated before any change is
// applied. Subscribers are notified only if a value actually changed.
func (i *Item) Update(updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}
	if i.deleted {
		return errItemDeleted
	}

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := i.fields
	nextState := i.state
	for _, key := range keys {
		attr, ok := itemUpdateFields[key]
		if !ok {
			return dErrors.Newf(dErrors.CodeUnknownField, "Unknown field '%s'", key)
		}
		value := updates[key]
		if strings.TrimSpace(value) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "Invalid value for '%s'", key)
		}
		switch attr {
		case "sender":
			next.Sender = value
		case "recipient":
			next.Recipient = value
		case "address":
			next.Address = value
		case "owner":
			next.Owner = value
		case "state":
			st, err := ParseItemState(value)
			if err != nil {
				return err
			}
			nextState = st
		}
	}

	if next == i.fields && nextState == i.state {
		return nil
	}
	i.fields = next
	i.state = nextState
	i.Updated()
	return nil
}

// Track registers sub for change notifications.
func (i *Item) Track(sub Subscriber) error {
	if i.deleted {
		return errItemDeleted
	}
	if err := checkSubscriber(sub); err != nil {
		return err
	}
	i.subscribers.add(sub)
	return nil
}

// Untrack stops notifications to sub.
func (i *Item) Untrack(sub Subscriber) error {
	if i.deleted {
		return errItemDeleted
	}
	if err := checkSubscriber(sub); err != nil {
		return err
	}
	i.subscribers.remove(sub)
	return nil
}

// Updated notifies every current subscriber.
func (i *Item) Updated() {
	notifyAll(i, i.subscribers.snapshot(), i.report)
}

// Delete detaches the item from its container, marks it deleted and drops its
// subscribers after telling them once. Deleting twice is a no-op.
func (i *Item) Delete() {
	if i.deleted {
		return
	}
	if i.holder != nil {
		i.holder.Release(i)
		i.holder = nil
	}
	i.deleted = true
	i.state = StateDeleted
	i.Updated()
	i.subscribers.clear()
}

// ItemView is the JSON representation of an item. Fields are declared in key
// order so the encoding is sorted.
type ItemView struct {
	Container *string   `json:"container"`
	Deleted   bool      `json:"deleted"`
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	RecipAddr string    `json:"recipaddr"`
	RecipNam  string    `json:"recipnam"`
	SenderNam string    `json:"sendernam"`
	State     ItemState `json:"state"`
}

// View returns the item's JSON representation.
func (i *Item) View() ItemView {
	v := ItemView{
		Deleted:   i.deleted,
		ID:        i.id,
		Owner:     i.fields.Owner,
		RecipAddr: i.fields.Address,
		RecipNam:  i.fields.Recipient,
		SenderNam: i.fields.Sender,
		State:     i.state,
	}
	if cid := i.ContainerID(); cid != "" {
		v.Container = &cid
	}
	return v
}

var errItemDeleted = dErrors.New(dErrors.CodeDeleted, "Cargo item has been deleted")
