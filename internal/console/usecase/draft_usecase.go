package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/google/uuid"
)

// DraftState is the lifecycle state of one editing session.
type DraftState string

const (
	// StateEmpty means no record is being edited (modal closed).
	StateEmpty DraftState = "empty"
	// StateEditing means the draft is populated and mutable.
	StateEditing DraftState = "editing"
	// StateSubmitting means the draft is being validated and persisted.
	StateSubmitting DraftState = "submitting"
)

// DraftSession holds the in-progress edit of one record. It is the single
// owner of its mutable state; the schema decides which fields exist, which
// are required, and which media lists carry a cover pointer. One session
// maps to one open modal in the console.
type DraftSession struct {
	schema   model.Schema
	uploader UploadUsecase
	sync     SyncUsecase
	log      logger.Logger

	mu      sync.Mutex
	id      string // session id, also the upload scope prefix
	state   DraftState
	itemID  string
	created model.Item // existing record when editing, zero when creating
	scalars map[string]string
	media   map[string][]string
	primary map[string]int
}

// NewDraftSession creates a session in the Empty state.
func NewDraftSession(schema model.Schema, uploader UploadUsecase, syncUC SyncUsecase, log logger.Logger) *DraftSession {
	return &DraftSession{
		schema:   schema,
		uploader: uploader,
		sync:     syncUC,
		log:      log.WithComponent("draft"),
		state:    StateEmpty,
	}
}

// State returns the current lifecycle state.
func (d *DraftSession) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ID returns the session identifier minted at load time. It is empty until
// the first Load and changes on every subsequent Load.
func (d *DraftSession) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// Collection returns the collection the session persists into.
func (d *DraftSession) Collection() string {
	return d.schema.Collection
}

// DraftView is a read-only snapshot of a session for transport.
type DraftView struct {
	ID         string              `json:"id"`
	Collection string              `json:"collection"`
	State      DraftState          `json:"state"`
	ItemID     string              `json:"itemId"`
	Fields     map[string]string   `json:"fields"`
	Media      map[string][]string `json:"media"`
	Primary    map[string]int      `json:"primary"`
}

// View returns a copy of the session's current state.
func (d *DraftSession) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()

	view := DraftView{
		ID:         d.id,
		Collection: d.schema.Collection,
		State:      d.state,
		ItemID:     d.itemID,
		Fields:     make(map[string]string, len(d.scalars)),
		Media:      make(map[string][]string, len(d.media)),
		Primary:    make(map[string]int, len(d.primary)),
	}
	for k, v := range d.scalars {
		view.Fields[k] = v
	}
	for k, list := range d.media {
		cp := make([]string, len(list))
		copy(cp, list)
		view.Media[k] = cp
	}
	for k, p := range d.primary {
		view.Primary[k] = p
	}
	return view
}

// ItemID returns the identifier the session will persist under. It is minted
// at load time and stays stable for the whole session.
func (d *DraftSession) ItemID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.itemID
}

// Load opens the session: populated from an existing item when given one,
// otherwise from schema defaults. A fresh identifier is minted for new
// records; the accent field, when the schema has one, is drawn once and
// stays stable for the session.
func (d *DraftSession) Load(existing *model.Item) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.id = uuid.NewString()
	d.scalars = make(map[string]string)
	d.media = make(map[string][]string)
	d.primary = make(map[string]int)

	if existing != nil {
		d.itemID = existing.ID
		d.created = *existing
		for _, f := range d.schema.TextFields {
			d.scalars[f.Name] = existing.StringField(f.Name)
		}
		for _, f := range d.schema.EnumFields {
			v := existing.StringField(f.Name)
			if v == "" {
				v = f.Default()
			}
			d.scalars[f.Name] = v
		}
		if d.schema.AccentField != "" {
			d.scalars[d.schema.AccentField] = existing.StringField(d.schema.AccentField)
		}
		for _, f := range d.schema.MediaFields {
			list := existing.MediaField(f.Name)
			d.media[f.Name] = list
			if f.HasPrimary() {
				d.primary[f.Name] = indexOf(list, existing.StringField(f.PrimaryField))
			}
		}
	} else {
		d.itemID = uuid.NewString()
		d.created = model.Item{}
		for _, f := range d.schema.TextFields {
			d.scalars[f.Name] = f.Default
		}
		for _, f := range d.schema.EnumFields {
			d.scalars[f.Name] = f.Default()
		}
		if d.schema.AccentField != "" && len(d.schema.AccentPalette) > 0 {
			d.scalars[d.schema.AccentField] = d.schema.AccentPalette[rand.Intn(len(d.schema.AccentPalette))]
		}
		for _, f := range d.schema.MediaFields {
			d.media[f.Name] = nil
			if f.HasPrimary() {
				d.primary[f.Name] = 0
			}
		}
	}

	d.state = StateEditing
	d.log.Debugf("session %s editing %s/%s", d.id, d.schema.Collection, d.itemID)
}

// Close discards the draft. Upload results that arrive afterwards are
// ignored; in-flight uploads are left to finish on their own.
func (d *DraftSession) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateEmpty
	d.log.Debugf("session %s closed", d.id)
}

// SetField sets a scalar field value. Enum fields reject values outside
// their option list.
func (d *DraftSession) SetField(name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateEditing {
		return errors.ErrDraftNotEditing
	}
	if f, ok := d.schema.EnumFieldByName(name); ok {
		if value != "" && !f.Contains(value) {
			return errors.NewDomainError(fmt.Sprintf("%q is not an option of %s", value, name))
		}
		d.scalars[name] = value
		return nil
	}
	for _, f := range d.schema.TextFields {
		if f.Name == name {
			d.scalars[name] = value
			return nil
		}
	}
	if name == d.schema.AccentField {
		d.scalars[name] = value
		return nil
	}
	return errors.NewDomainError(fmt.Sprintf("unknown field %s", name))
}

// Field returns a scalar field's current value.
func (d *DraftSession) Field(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scalars[name]
}

// Media returns a copy of the named media list.
func (d *DraftSession) Media(listName string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.media[listName]))
	copy(out, d.media[listName])
	return out
}

// Primary returns the cover index of the named media list.
func (d *DraftSession) Primary(listName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primary[listName]
}

// AttachMedia uploads the selected files and appends the resulting URLs to
// the named list. A batch exceeding the list's capacity is truncated before
// uploading. The whole batch is discarded when any file fails, and results
// arriving after the session left Editing are dropped.
func (d *DraftSession) AttachMedia(ctx context.Context, listName string, files []UploadFile) ([]string, error) {
	d.mu.Lock()
	if d.state != StateEditing {
		d.mu.Unlock()
		return nil, errors.ErrDraftNotEditing
	}
	field, ok := d.schema.MediaFieldByName(listName)
	if !ok {
		d.mu.Unlock()
		return nil, errors.ErrUnknownMediaField
	}
	if field.MaxItems > 0 {
		remaining := field.MaxItems - len(d.media[listName])
		if remaining <= 0 {
			d.mu.Unlock()
			return nil, errors.NewValidationError(fmt.Sprintf("%s already holds %d items", listName, field.MaxItems))
		}
		if len(files) > remaining {
			files = files[:remaining]
		}
	}
	scope := d.id + "/" + listName
	session := d.id
	d.mu.Unlock()

	refs, err := d.uploader.StoreAll(ctx, scope, field.Kind, files)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateEditing || d.id != session {
		// The modal closed (or reopened) while the batch was in flight; the
		// uploaded blobs stay in storage but are not attached.
		d.log.Debugf("discarding %d late upload result(s) for %s", len(refs), listName)
		return nil, nil
	}
	d.media[listName] = append(d.media[listName], refs...)
	return refs, nil
}

// AppendMedia appends already-uploaded references in order. Appending an
// empty list is a no-op.
func (d *DraftSession) AppendMedia(listName string, refs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateEditing {
		return errors.ErrDraftNotEditing
	}
	if _, ok := d.schema.MediaFieldByName(listName); !ok {
		return errors.ErrUnknownMediaField
	}
	if len(refs) == 0 {
		return nil
	}
	d.media[listName] = append(d.media[listName], refs...)
	return nil
}

// RemoveMedia removes the entry at index. A stale index into a shrunk list
// is a silent no-op, never an out-of-bounds mutation. The cover pointer is
// adjusted so it keeps naming the same item: removing the cover resets it to
// 0, removing an earlier entry shifts it down by one.
func (d *DraftSession) RemoveMedia(listName string, index int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateEditing {
		return
	}
	list := d.media[listName]
	if index < 0 || index >= len(list) {
		return
	}
	d.media[listName] = append(list[:index], list[index+1:]...)

	if field, ok := d.schema.MediaFieldByName(listName); ok && field.HasPrimary() {
		switch p := d.primary[listName]; {
		case index == p:
			d.primary[listName] = 0
		case index < p:
			d.primary[listName] = p - 1
		}
	}
}

// SetPrimary marks the entry at index as the cover item.
func (d *DraftSession) SetPrimary(listName string, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateEditing {
		return errors.ErrDraftNotEditing
	}
	field, ok := d.schema.MediaFieldByName(listName)
	if !ok || !field.HasPrimary() {
		return errors.ErrUnknownMediaField
	}
	if index < 0 || index >= len(d.media[listName]) {
		return errors.ErrInvalidIndex
	}
	d.primary[listName] = index
	return nil
}

// Submit validates the draft and hands it to the synchronizer. Validation
// failure returns a *errors.ValidationErrors naming the missing fields and
// leaves the session in Editing; no remote call is made. A synchronizer
// failure also returns the session to Editing so the edit is not lost. On
// success the session transitions to Empty and the persisted item is
// returned.
func (d *DraftSession) Submit(ctx context.Context) (model.Item, error) {
	d.mu.Lock()
	if d.state != StateEditing {
		d.mu.Unlock()
		return model.Item{}, errors.ErrDraftNotEditing
	}
	if d.uploader != nil && d.uploader.AnyBusy(d.id+"/") {
		d.mu.Unlock()
		return model.Item{}, errors.ErrUploadInFlight
	}
	d.state = StateSubmitting

	if verr := d.validateLocked(); verr.HasErrors() {
		d.state = StateEditing
		d.mu.Unlock()
		return model.Item{}, verr
	}

	item := d.buildItemLocked()
	d.mu.Unlock()

	if _, err := d.sync.Upsert(ctx, d.schema.Collection, item); err != nil {
		d.mu.Lock()
		d.state = StateEditing
		d.mu.Unlock()
		return model.Item{}, errors.WrapError(err, "persisting draft")
	}

	d.mu.Lock()
	d.state = StateEmpty
	d.mu.Unlock()
	d.log.WithContext(ctx).Infof("submitted %s/%s", d.schema.Collection, item.ID)
	return item, nil
}

func (d *DraftSession) validateLocked() *errors.ValidationErrors {
	verr := errors.NewValidationErrors()
	for _, f := range d.schema.TextFields {
		if f.Required && d.scalars[f.Name] == "" {
			verr.Add(f.Name, "required field is empty", nil)
		}
	}
	for _, f := range d.schema.EnumFields {
		if f.Required && d.scalars[f.Name] == "" {
			verr.Add(f.Name, "required field is empty", nil)
		}
	}
	for _, f := range d.schema.MediaFields {
		if f.Required && len(d.media[f.Name]) == 0 {
			verr.Add(f.Name, "at least one media item is required", nil)
		}
	}
	return verr
}

func (d *DraftSession) buildItemLocked() model.Item {
	fields := make(map[string]any)
	for name, v := range d.scalars {
		fields[name] = v
	}
	for _, f := range d.schema.MediaFields {
		list := make([]string, len(d.media[f.Name]))
		copy(list, d.media[f.Name])
		fields[f.Name] = list
		if f.HasPrimary() {
			cover := ""
			if p := d.primary[f.Name]; p >= 0 && p < len(list) {
				cover = list[p]
			} else if len(list) > 0 {
				cover = list[0]
			}
			fields[f.PrimaryField] = cover
		}
	}
	if d.schema.ContentTypeField != "" && d.schema.IconField != "" {
		fields[d.schema.IconField] = string(model.IconForContentType(d.scalars[d.schema.ContentTypeField]))
	}

	return model.Item{
		ID:         d.itemID,
		Fields:     fields,
		CreateTime: d.created.CreateTime,
	}
}

func indexOf(list []string, v string) int {
	for i, e := range list {
		if e == v {
			return i
		}
	}
	return 0
}
