package patient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
	"github.com/jwalitptl/patient-records/internal/service/navigation"
	"github.com/jwalitptl/patient-records/internal/service/notification"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/validator"
)

// Error keys set on form fields besides the validator rule keys
const (
	ErrKeyDuplicate = "duplicate"
	ErrKeyNumeric   = "numeric"
)

// Notices shown by the form
const (
	MsgInvalidRouteID   = "Invalid patient ID provided."
	MsgLoadFailed       = "Patient not found or failed to load."
	MsgDuplicateUID     = "This UID is already registered"
	MsgUIDCheckFailed   = "Could not verify UID uniqueness."
	MsgFixErrors        = "Please fix the form errors before submitting"
	MsgUpdated          = "Patient updated successfully"
	MsgUpdateFailed     = "Failed to update patient. Please try again."
	MsgVanishedOnSubmit = "This patient no longer exists. Creating a new record instead."
	MsgAdded            = "Patient added successfully"
	MsgAddFailed        = "Failed to add patient. Please try again."
)

var (
	ErrSubmitInProgress = errors.New("submit already in progress")
	ErrInvalidForm      = errors.New("form has validation errors")
	ErrUnknownField     = errors.New("unknown form field")
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Dependencies are the collaborators of a Form
type Dependencies struct {
	Repository repository.PatientRepository
	Notifier   notification.Notifier
	Navigator  navigation.Navigator
	Validator  *validator.Validator
	Logger     zerolog.Logger
}

// Form is the create/edit patient form. Field edits and submissions may come
// from different goroutines; a single submission runs at a time.
type Form struct {
	repo     repository.PatientRepository
	notifier notification.Notifier
	nav      navigation.Navigator
	v        *validator.Validator
	log      zerolog.Logger

	mu      sync.Mutex
	mode    Mode
	editing *model.Patient
	values  model.PatientForm
	ageRaw  string
	errs    validator.FieldErrors
	loading bool

	submitting atomic.Bool
}

// NewCreateForm returns an empty form in create mode.
func NewCreateForm(deps Dependencies) *Form {
	v := deps.Validator
	if v == nil {
		v = validator.New()
	}
	return &Form{
		repo:     deps.Repository,
		notifier: deps.Notifier,
		nav:      deps.Navigator,
		v:        v,
		log:      deps.Logger,
		mode:     ModeCreate,
		errs:     validator.FieldErrors{},
	}
}

// OpenEdit switches the form to edit the patient named by rawID, as taken from
// the route. On failure the user is sent back to the list.
func (f *Form) OpenEdit(ctx context.Context, rawID string) error {
	n, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || n <= 0 {
		f.log.Error().Str("id", rawID).Msg("invalid patient id in route")
		notification.Error(f.notifier, MsgInvalidRouteID)
		f.nav.Navigate(navigation.RouteList)
		return apperrors.InvalidArgument(MsgInvalidRouteID)
	}

	f.setLoading(true)
	p, err := f.repo.GetByID(ctx, model.PatientID(n))
	f.setLoading(false)
	if err != nil {
		f.log.Error().Err(err).Int("id", n).Msg("failed to load patient for editing")
		notification.Error(f.notifier, MsgLoadFailed)
		f.nav.Navigate(navigation.RouteList)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = ModeEdit
	f.editing = p
	f.values = model.FormFromPatient(p)
	f.ageRaw = strconv.Itoa(p.Age)
	f.errs = validator.FieldErrors{}
	return nil
}

// SetField sets one form value by its json name and re-validates that field.
// Setting the uid also runs the duplicate check.
func (f *Form) SetField(ctx context.Context, field, value string) error {
	if field == "uid" {
		f.SetUID(ctx, value)
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case "name":
		f.values.Name = value
	case "phone":
		f.values.Phone = value
	case "age":
		f.ageRaw = strings.TrimSpace(value)
		f.values.Age = nil
		if n, err := strconv.Atoi(f.ageRaw); err == nil {
			f.values.Age = &n
		}
	case "gender":
		f.values.Gender = value
	case "bloodGroup":
		f.values.BloodGroup = value
	case "address":
		f.values.Address = value
	case "medicalHistory":
		f.values.MedicalHistory = value
	case "photoUrl":
		f.values.PhotoURL = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	f.validateFieldLocked(field)
	return nil
}

// SetUID sets the uid and checks the store for another patient holding it.
// The check runs only for well formed uids. A duplicate error survives only
// while the uid keeps the value it was found on.
func (f *Form) SetUID(ctx context.Context, uid string) {
	f.mu.Lock()
	if f.values.UID != uid {
		// an earlier collision only holds for the value it was found on
		f.errs.Remove("uid", ErrKeyDuplicate)
	}
	f.values.UID = uid
	f.validateFieldLocked("uid")
	if !validator.IsUID(uid) {
		f.errs.Remove("uid", ErrKeyDuplicate)
		f.mu.Unlock()
		return
	}
	var editingID model.PatientID
	if f.mode == ModeEdit && f.editing != nil {
		editingID = f.editing.ID
	}
	f.mu.Unlock()

	holders, err := f.repo.CheckUIDExists(ctx, uid)
	if err != nil {
		f.log.Error().Err(err).Msg("uid existence check failed")
		notification.Error(f.notifier, MsgUIDCheckFailed)
		return
	}

	taken := false
	for _, p := range holders {
		if editingID == 0 || p.ID != editingID {
			taken = true
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values.UID != uid {
		// superseded by a later edit
		return
	}
	if !taken {
		f.errs.Remove("uid", ErrKeyDuplicate)
		return
	}
	f.errs.Add("uid", ErrKeyDuplicate)
	notification.Warning(f.notifier, MsgDuplicateUID)
}

// validateFieldLocked recomputes the rule errors of field. A previously found
// duplicate uid survives, it is only cleared by the duplicate check.
func (f *Form) validateFieldLocked(field string) {
	duplicate := field == "uid" && f.errs.Has("uid", ErrKeyDuplicate)

	delete(f.errs, field)
	for _, key := range f.v.ValidateField(f.values, field) {
		f.errs.Add(field, key)
	}
	if field == "age" && f.values.Age == nil && f.ageRaw != "" {
		f.errs.Remove("age", "required")
		f.errs.Add("age", ErrKeyNumeric)
	}
	if duplicate {
		f.errs.Add("uid", ErrKeyDuplicate)
	}
}

// Validate checks every field and reports whether the form can be submitted.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() bool {
	duplicate := f.errs.Has("uid", ErrKeyDuplicate)
	f.errs = f.v.Validate(f.values)
	if f.values.Age == nil && f.ageRaw != "" {
		f.errs.Remove("age", "required")
		f.errs.Add("age", ErrKeyNumeric)
	}
	if duplicate {
		f.errs.Add("uid", ErrKeyDuplicate)
	}
	return len(f.errs) == 0
}

// Submit saves the form. In edit mode the target is re-read first; when that
// read fails the values are saved as a new patient instead. Concurrent calls while a
// submission is outstanding return ErrSubmitInProgress.
func (f *Form) Submit(ctx context.Context) error {
	if !f.submitting.CompareAndSwap(false, true) {
		return ErrSubmitInProgress
	}
	defer f.submitting.Store(false)

	f.mu.Lock()
	valid := f.validateLocked()
	values := f.values
	mode := f.mode
	var id model.PatientID
	if f.editing != nil {
		id = f.editing.ID
	}
	f.mu.Unlock()

	if !valid {
		notification.Error(f.notifier, MsgFixErrors)
		return ErrInvalidForm
	}

	if mode == ModeEdit && id.Valid() {
		return f.update(ctx, id, values)
	}
	return f.create(ctx, values)
}

func (f *Form) update(ctx context.Context, id model.PatientID, values model.PatientForm) error {
	if _, err := f.repo.GetByID(ctx, id); err != nil {
		// any failed re-read counts as vanished so the input is kept
		f.log.Warn().Err(err).Int("id", int(id)).Msg("patient could not be re-read before update, creating a new record")
		notification.Warning(f.notifier, MsgVanishedOnSubmit)
		return f.create(ctx, values)
	}

	if _, err := f.repo.Update(ctx, id, values.Patch()); err != nil {
		f.log.Error().Err(err).Int("id", int(id)).Msg("failed to update patient")
		notification.Error(f.notifier, MsgUpdateFailed)
		return err
	}

	notification.Success(f.notifier, MsgUpdated)
	f.nav.Navigate(navigation.RouteList)
	return nil
}

func (f *Form) create(ctx context.Context, values model.PatientForm) error {
	created, err := f.repo.Create(ctx, values.Draft())
	if err != nil {
		f.log.Error().Err(err).Msg("failed to add patient")
		notification.Error(f.notifier, MsgAddFailed)
		return err
	}

	f.log.Info().Int("id", int(created.ID)).Msg("patient added")
	notification.Success(f.notifier, MsgAdded)
	f.nav.Navigate(navigation.RouteList)
	return nil
}

func (f *Form) Cancel() {
	f.nav.Navigate(navigation.RouteList)
}

func (f *Form) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Editing returns the record loaded by OpenEdit, or nil in create mode.
func (f *Form) Editing() *model.Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editing == nil {
		return nil
	}
	cp := *f.editing
	return &cp
}

func (f *Form) Values() model.PatientForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := f.values
	if values.Age != nil {
		age := *values.Age
		values.Age = &age
	}
	return values
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() validator.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(validator.FieldErrors, len(f.errs))
	for field, keys := range f.errs {
		out[field] = append([]string(nil), keys...)
	}
	return out
}

func (f *Form) Submitting() bool {
	return f.submitting.Load()
}

func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *Form) setLoading(v bool) {
	f.mu.Lock()
	f.loading = v
	f.mu.Unlock()
}
