package models

import (
	"io"
	"log/slog"
	"sort"
	"strings"

	dErrors "cargotrack/pkg/domain-errors"
)

// WatchableItem is what a tracker needs from a watched cargo item.
type WatchableItem interface {
	Trackable
	Locator
	State() ItemState
	ContainerID() string
}

// Sink receives updates a tracker accepted. id is the resolved id of source.
type Sink func(t *Tracker, source Observable, id string) error

// TrackerFields are the mutable descriptive fields of a tracker.
type TrackerFields struct {
	Description string
	Owner       string
}

// Tracker watches items and containers and forwards accepted updates to a sink.
//
// Invariants:
//   - ID, description and owner are never empty
//   - Every watched entity lists the tracker as a subscriber and vice versa
//   - Once deleted, the tracker watches nothing and rejects every mutation
//   - A tracker watching nothing is valid and inert
//
// # View filtering
//
// With a view rectangle set, an update is dropped when its source resolves to
// a location outside the rectangle. Sources with no resolvable location (an
// item outside any container) are never filtered: when the location is
// unknown the update passes through. StatList and InView are stricter and
// exclude location-less items while a view is active.
type Tracker struct {
	id         string
	fields     TrackerFields
	items      orderedSet[WatchableItem]
	containers orderedSet[Trackable]
	view       *ViewRect
	deleted    bool
	sink       Sink
	logger     *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithSink sets the external sink for accepted updates.
func WithSink(sink Sink) TrackerOption {
	return func(t *Tracker) {
		t.sink = sink
	}
}

// WithTrackerLogger sets the logger used for filter and sink diagnostics.
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker constructs a tracker that watches nothing.
func NewTracker(id string, fields TrackerFields, opts ...TrackerOption) (*Tracker, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tid not provided")
	}
	if strings.TrimSpace(fields.Description) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "description not provided")
	}
	if strings.TrimSpace(fields.Owner) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner not provided")
	}
	t := &Tracker{
		id:     id,
		fields: fields,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Tracker) ID() string            { return t.id }
func (t *Tracker) Kind() Kind            { return KindTracker }
func (t *Tracker) Fields() TrackerFields { return t.fields }
func (t *Tracker) Deleted() bool         { return t.deleted }

// View returns the active view rectangle, if any.
func (t *Tracker) View() (ViewRect, bool) {
	if t.view == nil {
		return ViewRect{}, false
	}
	return *t.view, true
}

var trackerUpdateFields = map[string]bool{
	"description": true,
	"owner":       true,
}

// Update changes description and/or owner.
func (t *Tracker) Update(updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}
	if t.deleted {
		return t.errDeleted()
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := t.fields
	for _, key := range keys {
		if !trackerUpdateFields[key] {
			return dErrors.Newf(dErrors.CodeUnknownField, "Unknown field '%s'", key)
		}
		value := updates[key]
		if strings.TrimSpace(value) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "Invalid value for '%s'", key)
		}
		if key == "description" {
			next.Description = value
		} else {
			next.Owner = value
		}
	}
	t.fields = next
	return nil
}

// AddItem starts watching items. Items already watched are skipped.
func (t *Tracker) AddItem(items ...WatchableItem) error {
	if t.deleted {
		return t.errDeleted()
	}
	for _, item := range items {
		if t.items.has(item) {
			continue
		}
		if err := item.Track(t); err != nil {
			return err
		}
		t.items.add(item)
	}
	return nil
}

// AddContainer starts watching containers. Containers already watched are skipped.
func (t *Tracker) AddContainer(containers ...Trackable) error {
	if t.deleted {
		return t.errDeleted()
	}
	for _, c := range containers {
		if t.containers.has(c) {
			continue
		}
		if err := c.Track(t); err != nil {
			return err
		}
		t.containers.add(c)
	}
	return nil
}

// RemoveItem stops watching item. Removing an unwatched item is a no-op, and a
// deleted item is dropped from the watch set without error.
func (t *Tracker) RemoveItem(item WatchableItem) error {
	if t.deleted {
		return t.errDeleted()
	}
	if !t.items.remove(item) {
		return nil
	}
	return ignoreDeleted(item.Untrack(t))
}

// RemoveContainer stops watching c. Removing an unwatched container is a no-op.
func (t *Tracker) RemoveContainer(c Trackable) error {
	if t.deleted {
		return t.errDeleted()
	}
	if !t.containers.remove(c) {
		return nil
	}
	return ignoreDeleted(c.Untrack(t))
}

// WatchedItem finds a watched item by id. Deleted items stay reachable here
// after the directory has dropped them.
func (t *Tracker) WatchedItem(id string) (WatchableItem, bool) {
	for _, item := range t.items.items {
		if item.ID() == id {
			return item, true
		}
	}
	return nil, false
}

// A deleted entity has already cleared its subscribers.
func ignoreDeleted(err error) error {
	if dErrors.HasCode(err, dErrors.CodeDeleted) {
		return nil
	}
	return err
}

// WatchedItemIDs returns ids of watched items in watch order.
func (t *Tracker) WatchedItemIDs() []string {
	ids := make([]string, 0, t.items.len())
	for _, item := range t.items.items {
		ids = append(ids, item.ID())
	}
	return ids
}

// WatchedContainerIDs returns ids of watched containers in watch order.
func (t *Tracker) WatchedContainerIDs() []string {
	ids := make([]string, 0, t.containers.len())
	for _, c := range t.containers.items {
		ids = append(ids, c.ID())
	}
	return ids
}

// Updated is the tracker's filtering and dispatch point.
func (t *Tracker) Updated(source Observable) error {
	if t.deleted {
		return t.errDeleted()
	}
	if source == nil {
		t.logger.Debug("received a generic update", "tracker_id", t.id)
		return nil
	}
	id := source.ID()

	if t.view != nil {
		if loc, ok := resolveLocation(source); ok && !t.view.Contains(loc) {
			t.logger.Debug("ignoring update outside view",
				"tracker_id", t.id,
				"source_id", id,
				"lon", loc.Lon,
				"lat", loc.Lat,
			)
			return nil
		}
	}

	t.logger.Debug("received update", "tracker_id", t.id, "source_id", id)
	t.emit(source, id)
	return nil
}

func (t *Tracker) emit(source Observable, id string) {
	if t.sink == nil {
		return
	}
	if err := t.sink(t, source, id); err != nil {
		t.logger.Warn("update callback failed", "tracker_id", t.id, "source_id", id, "error", err)
	}
}

// Status is one entry of a tracker's status list.
type Status struct {
	ID          string    `json:"id"`
	State       ItemState `json:"state"`
	Location    *Location `json:"location"`
	ContainerID *string   `json:"container_id"`
}

// StatList reports every watched item visible through the current view.
func (t *Tracker) StatList() ([]Status, error) {
	if t.deleted {
		return nil, t.errDeleted()
	}
	out := make([]Status, 0, t.items.len())
	for _, item := range t.items.items {
		loc, hasLoc := item.Location()
		if t.view != nil && (!hasLoc || !t.view.Contains(loc)) {
			continue
		}
		st := Status{ID: item.ID(), State: item.State()}
		if hasLoc {
			l := loc
			st.Location = &l
		}
		if cid := item.ContainerID(); cid != "" {
			st.ContainerID = &cid
		}
		out = append(out, st)
	}
	return out, nil
}

// SetView replaces the view rectangle.
func (t *Tracker) SetView(top, left, bottom, right float64) error {
	if t.deleted {
		return t.errDeleted()
	}
	rect, err := NewViewRect(top, left, bottom, right)
	if err != nil {
		return err
	}
	t.view = &rect
	return nil
}

// ClearView removes the view rectangle.
func (t *Tracker) ClearView() error {
	if t.deleted {
		return t.errDeleted()
	}
	t.view = nil
	return nil
}

// InView reports whether obj's location falls within the view. Without a view
// everything is in view; with one, objects without a location are not.
func (t *Tracker) InView(obj Observable) bool {
	if t.view == nil {
		return true
	}
	loc, ok := resolveLocation(obj)
	if !ok {
		return false
	}
	return t.view.Contains(loc)
}

// Delete unregisters the tracker from everything it watches. Entities that
// refuse (already deleted) are dropped anyway. Deleting twice is a no-op.
func (t *Tracker) Delete() {
	if t.deleted {
		return
	}
	t.deleted = true
	for _, item := range t.items.snapshot() {
		if err := item.Untrack(t); err != nil {
			t.logger.Debug("untrack item failed", "tracker_id", t.id, "item_id", item.ID(), "error", err)
		}
	}
	for _, c := range t.containers.snapshot() {
		if err := c.Untrack(t); err != nil {
			t.logger.Debug("untrack container failed", "tracker_id", t.id, "container_id", c.ID(), "error", err)
		}
	}
	t.items.clear()
	t.containers.clear()
}

// TrackerView is the JSON representation of a tracker.
type TrackerView struct {
	Deleted           bool      `json:"deleted"`
	Description       string    `json:"description"`
	Owner             string    `json:"owner"`
	Tid               string    `json:"tid"`
	TrackedContainers []string  `json:"tracked_containers"`
	TrackedItems      []string  `json:"tracked_items"`
	ViewRect          *ViewRect `json:"view_rect"`
}

// Describe returns the tracker's JSON representation.
func (t *Tracker) Describe() TrackerView {
	return TrackerView{
		Deleted:           t.deleted,
		Description:       t.fields.Description,
		Owner:             t.fields.Owner,
		Tid:               t.id,
		TrackedContainers: t.WatchedContainerIDs(),
		TrackedItems:      t.WatchedItemIDs(),
		ViewRect:          t.view,
	}
}

func (t *Tracker) errDeleted() error {
	return dErrors.Newf(dErrors.CodeDeleted, "Tracker '%s' has been deleted", t.id)
}

func resolveLocation(obj Observable) (Location, bool) {
	if l, ok := obj.(Locator); ok {
		return l.Location()
	}
	return Location{}, false
}
