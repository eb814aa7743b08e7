package directory

import (
	"sort"
	"strings"

	"cargotrack/internal/cargo/models"
	dErrors "cargotrack/pkg/domain-errors"
)

// Directory is the authoritative mapping from tracking id to item, plus the
// attachment index that gates deletion.
//
// Directory is not safe for concurrent use; the shared model serializes access.
//
// Invariants:
//   - Every id maps to exactly one item and ids are never reused
//   - An item with at least one attached user cannot be deleted
//   - Attachments only reference items present in the directory
type Directory struct {
	items       map[string]*models.Item
	order       []string
	attachments map[string]map[string]struct{}
	seq         *models.Sequence
	itemOpts    []models.ItemOption
}

// Option configures a Directory.
type Option func(*Directory)

// WithSequence replaces the process-wide models.ItemIDs sequence.
func WithSequence(seq *models.Sequence) Option {
	return func(d *Directory) {
		d.seq = seq
	}
}

// WithItemOptions applies opts to every item the directory creates.
func WithItemOptions(opts ...models.ItemOption) Option {
	return func(d *Directory) {
		d.itemOpts = append(d.itemOpts, opts...)
	}
}

// New constructs an empty directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		items:       make(map[string]*models.Item),
		attachments: make(map[string]map[string]struct{}),
		seq:         models.ItemIDs,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sequence returns the id sequence the directory mints from.
func (d *Directory) Sequence() *models.Sequence {
	return d.seq
}

// ItemOptions returns the options applied to created items.
func (d *Directory) ItemOptions() []models.ItemOption {
	return d.itemOpts
}

// Create mints a tracking id and stores a new accepted item.
func (d *Directory) Create(fields models.ItemFields) (*models.Item, error) {
	item, err := models.NewItem(models.FormatItemID(d.seq.Next()), fields, d.itemOpts...)
	if err != nil {
		return nil, err
	}
	if _, exists := d.items[item.ID()]; exists {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "Duplicate cargo item identifier generated")
	}
	d.put(item)
	return item, nil
}

// Insert stores an already constructed item under its own id.
func (d *Directory) Insert(item *models.Item) error {
	if item == nil {
		return dErrors.New(dErrors.CodeValidation, "item not provided")
	}
	if _, exists := d.items[item.ID()]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "item %s exists", item.ID())
	}
	d.put(item)
	return nil
}

func (d *Directory) put(item *models.Item) {
	d.items[item.ID()] = item
	d.order = append(d.order, item.ID())
}

// Get looks up an item by tracking id.
func (d *Directory) Get(id string) (*models.Item, error) {
	item, ok := d.items[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "Unknown item")
	}
	return item, nil
}

// List returns every item in creation order.
func (d *Directory) List() []*models.Item {
	out := make([]*models.Item, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.items[id])
	}
	return out
}

// Len returns the number of stored items.
func (d *Directory) Len() int {
	return len(d.items)
}

// ListAttached returns the items user is attached to, in creation order.
func (d *Directory) ListAttached(user string) ([]*models.Item, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	var out []*models.Item
	for _, id := range d.order {
		if _, ok := d.attachments[id][user]; ok {
			out = append(out, d.items[id])
		}
	}
	return out, nil
}

// Attach records that user follows the item. Attaching twice is a no-op.
func (d *Directory) Attach(id, user string) (*models.Item, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	item, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	users, ok := d.attachments[id]
	if !ok {
		users = make(map[string]struct{})
		d.attachments[id] = users
	}
	users[user] = struct{}{}
	return item, nil
}

// Detach removes user's attachment to the item.
func (d *Directory) Detach(id, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if _, err := d.Get(id); err != nil {
		return err
	}
	users := d.attachments[id]
	if _, ok := users[user]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "User '%s' not attached to item '%s'", user, id)
	}
	delete(users, user)
	if len(users) == 0 {
		delete(d.attachments, id)
	}
	return nil
}

// AttachedUsers returns the sorted users attached to the item.
func (d *Directory) AttachedUsers(id string) []string {
	users := make([]string, 0, len(d.attachments[id]))
	for u := range d.attachments[id] {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Delete deletes the item and drops it from the directory. Items with
// attached users are refused.
func (d *Directory) Delete(id string) error {
	item, err := d.Get(id)
	if err != nil {
		return err
	}
	if len(d.attachments[id]) > 0 {
		return dErrors.New(dErrors.CodeAttachmentConflict, "Cannot delete an item while it is attached")
	}
	item.Delete()
	delete(d.items, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func validateUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return dErrors.New(dErrors.CodeValidation, "user must be a non-empty string")
	}
	return nil
}
