package models

import (
	"fmt"
	"sort"
	"strings"

	dErrors "cargotrack/pkg/domain-errors"
)

// DefaultStationaryTypes are the container types whose items are waiting
// rather than in transit.
var DefaultStationaryTypes = []string{"FrontOffice", "Hub"}

// ContainerFields are the mutable descriptive fields of a container.
type ContainerFields struct {
	Description string
	Type        string
}

// Container holds cargo items and propagates its changes to them.
//
// Invariants:
//   - ID is non-empty and immutable
//   - A deleted container rejects load, unload, move, setlocation, update and track
//   - State is "waiting" for stationary types and "in transit" otherwise
//   - Every member's holder is this container
//
// # Cascade
//
// Updated notifies the container's own subscribers first and then calls
// Updated on every member, so watchers of an item learn about container
// movement without watching the container itself.
type Container struct {
	id          string
	fields      ContainerFields
	loc         Location
	members     orderedSet[Cargo]
	subscribers orderedSet[Subscriber]
	deleted     bool
	stationary  map[string]bool
	report      FailureReporter
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

// WithContainerReporter sets the reporter for failing subscribers.
func WithContainerReporter(r FailureReporter) ContainerOption {
	return func(c *Container) {
		c.report = r
	}
}

// WithStationaryTypes replaces DefaultStationaryTypes for this container.
func WithStationaryTypes(types ...string) ContainerOption {
	return func(c *Container) {
		c.stationary = typeSet(types)
	}
}

// NewContainer constructs an empty container.
func NewContainer(id string, fields ContainerFields, loc Location, opts ...ContainerOption) (*Container, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "cid not provided")
	}
	if strings.TrimSpace(fields.Description) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "description not provided")
	}
	if strings.TrimSpace(fields.Type) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "type not provided")
	}
	if _, err := NewLocation(loc.Lon, loc.Lat); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "loc must be a (long, latt) pair")
	}
	c := &Container{
		id:         id,
		fields:     fields,
		loc:        loc,
		stationary: typeSet(DefaultStationaryTypes),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Container) ID() string              { return c.id }
func (c *Container) Kind() Kind              { return KindContainer }
func (c *Container) Fields() ContainerFields { return c.fields }
func (c *Container) Deleted() bool           { return c.deleted }
func (c *Container) SubscriberCount() int    { return c.subscribers.len() }

// Location returns the container's position. Containers always have one.
func (c *Container) Location() (Location, bool) {
	return c.loc, true
}

// Members returns the held cargo in load order.
func (c *Container) Members() []Cargo {
	return c.members.snapshot()
}

// MemberIDs returns the ids of the held cargo in load order.
func (c *Container) MemberIDs() []string {
	ids := make([]string, 0, c.members.len())
	for _, m := range c.members.items {
		ids = append(ids, m.ID())
	}
	return ids
}

// Holds reports whether item is a member.
func (c *Container) Holds(item Cargo) bool {
	return c.members.has(item)
}

// Stationary reports whether the container's type is a stationary one.
func (c *Container) Stationary() bool {
	return c.stationary[c.fields.Type]
}

// State is the state handed to items loaded into the container.
func (c *Container) State() (ItemState, error) {
	if c.deleted {
		return "", c.errDeleted()
	}
	if c.Stationary() {
		return StateWaiting, nil
	}
	return StateInTransit, nil
}

var containerUpdateFields = map[string]bool{
	"description": true,
	"type":        true,
}

// Update changes description and/or type. Subscribers and members are
// notified only if a value actually changed.
func (c *Container) Update(updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}
	if c.deleted {
		return c.errDeleted()
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := c.fields
	for _, key := range keys {
		if !containerUpdateFields[key] {
			return dErrors.Newf(dErrors.CodeUnknownField, "Unknown field '%s'", key)
		}
		value := updates[key]
		if strings.TrimSpace(value) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "Invalid value for '%s'", key)
		}
		if key == "description" {
			next.Description = value
		} else {
			next.Type = value
		}
	}
	if next == c.fields {
		return nil
	}
	c.fields = next
	c.Updated()
	return nil
}

// SetLocation moves the container. Nothing is notified when the position is unchanged.
func (c *Container) SetLocation(lon, lat float64) error {
	if c.deleted {
		return c.errDeleted()
	}
	loc, err := NewLocation(lon, lat)
	if err != nil {
		return err
	}
	if loc == c.loc {
		return nil
	}
	c.loc = loc
	c.Updated()
	return nil
}

// Load adds items. Items already held are skipped.
func (c *Container) Load(items ...Cargo) error {
	if c.deleted {
		return c.errDeleted()
	}
	for _, item := range items {
		if !c.members.add(item) {
			continue
		}
		if err := item.SetContainer(c); err != nil {
			c.members.remove(item)
			return err
		}
	}
	return nil
}

// Unload removes items. Items not held are skipped.
func (c *Container) Unload(items ...Cargo) error {
	if c.deleted {
		return c.errDeleted()
	}
	return c.unload(items)
}

func (c *Container) unload(items []Cargo) error {
	for _, item := range items {
		if !c.members.remove(item) {
			continue
		}
		if err := item.SetContainer(nil); err != nil {
			return err
		}
	}
	return nil
}

// Move transfers held items into target with a single SetContainer per item.
// Items this container does not hold are skipped.
func (c *Container) Move(items []Cargo, target *Container) error {
	if c.deleted {
		return c.errDeleted()
	}
	if target == nil {
		return dErrors.New(dErrors.CodeValidation, "target container not provided")
	}
	if target.deleted {
		return target.errDeleted()
	}
	for _, item := range items {
		if !c.members.remove(item) {
			continue
		}
		target.members.add(item)
		if err := item.SetContainer(target); err != nil {
			target.members.remove(item)
			return err
		}
	}
	return nil
}

// Release drops c from membership without callbacks. It is how an item that
// switches holders leaves its previous container.
func (c *Container) Release(item Cargo) {
	c.members.remove(item)
}

// Adopt links a restored item without notifying or recomputing its state.
func (c *Container) Adopt(item *Item) {
	if item.holder != nil && item.holder != Holder(c) {
		item.holder.Release(item)
	}
	c.members.add(item)
	item.holder = c
}

// Track registers sub for change notifications.
func (c *Container) Track(sub Subscriber) error {
	if c.deleted {
		return c.errDeleted()
	}
	if err := checkSubscriber(sub); err != nil {
		return err
	}
	c.subscribers.add(sub)
	return nil
}

// Untrack stops notifications to sub.
func (c *Container) Untrack(sub Subscriber) error {
	if c.deleted {
		return c.errDeleted()
	}
	if err := checkSubscriber(sub); err != nil {
		return err
	}
	c.subscribers.remove(sub)
	return nil
}

// Updated notifies subscribers, then cascades to every held item.
func (c *Container) Updated() {
	notifyAll(c, c.subscribers.snapshot(), c.report)
	if c.deleted {
		return
	}
	for _, item := range c.members.snapshot() {
		item.Updated()
	}
}

// Delete unloads every item, marks the container deleted, tells subscribers
// once and drops them. Deleting twice is a no-op.
func (c *Container) Delete() error {
	if c.deleted {
		return nil
	}
	if err := c.unload(c.members.snapshot()); err != nil {
		return err
	}
	c.deleted = true
	c.Updated()
	c.subscribers.clear()
	return nil
}

// ContainerView is the JSON representation of a container. Fields are
// declared in key order so the encoding is sorted.
type ContainerView struct {
	Cid         string   `json:"cid"`
	Deleted     bool     `json:"deleted"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
	Loc         Location `json:"loc"`
	Type        string   `json:"type"`
}

// View returns the container's JSON representation.
func (c *Container) View() ContainerView {
	return ContainerView{
		Cid:         c.id,
		Deleted:     c.deleted,
		Description: c.fields.Description,
		Items:       c.MemberIDs(),
		Loc:         c.loc,
		Type:        c.fields.Type,
	}
}

func (c *Container) errDeleted() error {
	return dErrors.New(dErrors.CodeDeleted, fmt.Sprintf("Container '%s' has been deleted", c.id))
}

func typeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
