package patientlist

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
	"github.com/jwalitptl/patient-records/internal/service/navigation"
	"github.com/jwalitptl/patient-records/internal/service/notification"
	"github.com/jwalitptl/patient-records/internal/service/patient"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/export"
)

const (
	MsgLoadFailed    = "Failed to load patients"
	MsgSearchFailed  = "Failed to search patients"
	MsgFilterFailed  = "Failed to filter patients"
	MsgInvalidRecord = "Invalid patient record"
	MsgVanished      = "This patient record no longer exists. Please refresh the list."
	MsgInvalidID     = "Invalid patient ID"
	MsgDeleted       = "Patient deleted successfully"
	MsgAlreadyGone   = "Patient no longer exists in the database"
	msgDeleteFailed  = "Failed to delete patient: "

	ExportFilename = "patients.csv"
)

var exportHeader = []string{"ID", "Name", "UID", "Phone", "Age", "Gender", "Blood Group"}

// Mode is the query that populates the list
type Mode int

const (
	ModeAll Mode = iota
	ModeSearch
	ModeFilter
)

func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModeFilter:
		return "filter"
	default:
		return "all"
	}
}

// Confirmer asks the user to confirm deleting p.
type Confirmer interface {
	ConfirmDelete(ctx context.Context, p *model.Patient) (bool, error)
}

type Dependencies struct {
	Repository repository.PatientRepository
	Notifier   notification.Notifier
	Navigator  navigation.Navigator
	Confirmer  Confirmer
	Logger     zerolog.Logger
}

// Controller owns the displayed patient list and re-reads it from the store
// after every mutation or rejected action.
type Controller struct {
	repo     repository.PatientRepository
	guard    *patient.Guard
	notifier notification.Notifier
	nav      navigation.Navigator
	confirm  Confirmer
	log      zerolog.Logger

	mu       sync.Mutex
	patients []*model.Patient
	loading  bool
	mode     Mode
	query    string
	group    model.BloodGroup
}

func NewController(deps Dependencies) *Controller {
	return &Controller{
		repo:     deps.Repository,
		guard:    patient.NewGuard(deps.Repository),
		notifier: deps.Notifier,
		nav:      deps.Navigator,
		confirm:  deps.Confirmer,
		log:      deps.Logger,
		patients: []*model.Patient{},
		group:    model.AllBloodGroups,
	}
}

// Load shows every patient and clears any search or filter.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.mode = ModeAll
	c.query = ""
	c.group = model.AllBloodGroups
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Search re-queries the store for q and drops the blood group filter. A blank
// q shows every patient.
func (c *Controller) Search(ctx context.Context, q string) error {
	c.mu.Lock()
	c.query = q
	c.group = model.AllBloodGroups
	c.mode = ModeSearch
	if strings.TrimSpace(q) == "" {
		c.mode = ModeAll
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// FilterByBloodGroup re-queries the store for group and drops the search
// query. The sentinel shows every patient.
func (c *Controller) FilterByBloodGroup(ctx context.Context, group model.BloodGroup) error {
	if group == "" {
		group = model.AllBloodGroups
	}
	c.mu.Lock()
	c.group = group
	c.query = ""
	c.mode = ModeFilter
	if group.IsAll() {
		c.mode = ModeAll
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh re-runs the active query and replaces the list on success. On
// failure the previous list stays and a notice is shown.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	mode, query, group := c.mode, c.query, c.group
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	var (
		patients []*model.Patient
		err      error
		failMsg  string
	)
	switch mode {
	case ModeSearch:
		patients, err = c.repo.Search(ctx, query)
		failMsg = MsgSearchFailed
	case ModeFilter:
		patients, err = c.repo.FilterByBloodGroup(ctx, group)
		failMsg = MsgFilterFailed
	default:
		patients, err = c.repo.ListAll(ctx)
		failMsg = MsgLoadFailed
	}
	if err != nil {
		c.log.Error().Err(err).Str("mode", mode.String()).Msg("failed to refresh patient list")
		notification.Error(c.notifier, failMsg)
		return err
	}

	if patients == nil {
		patients = []*model.Patient{}
	}
	c.mu.Lock()
	c.patients = patients
	c.mu.Unlock()
	return nil
}

// View returns the current store copy of p for the details view.
func (c *Controller) View(ctx context.Context, p *model.Patient) (*model.Patient, error) {
	return c.verify(ctx, p)
}

// Edit opens the edit route for p once it is known to still exist.
func (c *Controller) Edit(ctx context.Context, p *model.Patient) error {
	fresh, err := c.verify(ctx, p)
	if err != nil {
		return err
	}
	c.nav.Navigate(navigation.EditRoute(fresh.ID))
	return nil
}

// Delete verifies p, asks for confirmation and deletes it. It reports whether
// a delete was issued.
func (c *Controller) Delete(ctx context.Context, p *model.Patient) (bool, error) {
	fresh, err := c.verify(ctx, p)
	if err != nil {
		return false, err
	}

	if c.confirm != nil {
		ok, err := c.confirm.ConfirmDelete(ctx, fresh)
		if err != nil {
			c.log.Warn().Err(err).Int("id", int(fresh.ID)).Msg("delete confirmation failed")
			return false, nil
		}
		if !ok {
			return false, nil
		}
	}
	return true, c.ConfirmDelete(ctx, p.ID)
}

// ConfirmDelete deletes id and refreshes. A record already gone from the
// store is reported as a warning and refreshes as well.
func (c *Controller) ConfirmDelete(ctx context.Context, id model.PatientID) error {
	if !id.Valid() {
		notification.Error(c.notifier, MsgInvalidID)
		return apperrors.InvalidArgument(MsgInvalidID)
	}

	err := c.repo.Delete(ctx, id)
	switch {
	case err == nil:
		c.log.Info().Int("id", int(id)).Msg("patient deleted")
		notification.Success(c.notifier, MsgDeleted)
		_ = c.Refresh(ctx)
		return nil
	case apperrors.IsNotFound(err):
		notification.Warning(c.notifier, MsgAlreadyGone)
		_ = c.Refresh(ctx)
		return err
	default:
		c.log.Error().Err(err).Int("id", int(id)).Msg("failed to delete patient")
		msg := apperrors.MessageOf(err)
		if msg == "" {
			msg = "Unknown error"
		}
		notification.Error(c.notifier, msgDeleteFailed+msg)
		return err
	}
}

// verify runs the existence check and performs the rejection handling: a
// vanished record refreshes the list exactly once.
func (c *Controller) verify(ctx context.Context, p *model.Patient) (*model.Patient, error) {
	fresh, err := c.guard.Verify(ctx, p)
	if err == nil {
		return fresh, nil
	}

	switch {
	case apperrors.KindOf(err) == apperrors.KindInvalidArgument:
		notification.Error(c.notifier, MsgInvalidRecord)
	case patient.IsVanished(err):
		c.log.Warn().Int("id", int(p.ID)).Msg("patient vanished from store")
		notification.Error(c.notifier, MsgVanished)
		_ = c.Refresh(ctx)
	default:
		c.log.Error().Err(err).Int("id", int(p.ID)).Msg("existence check failed")
		notification.Error(c.notifier, apperrors.MessageOf(err))
	}
	return nil, err
}

func (c *Controller) Add() {
	c.nav.Navigate(navigation.RouteAdd)
}

// Patients returns a copy of the displayed list in store order.
func (c *Controller) Patients() []*model.Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Patient, 0, len(c.patients))
	for _, p := range c.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) SearchQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *Controller) BloodGroup() model.BloodGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.group
}

// Export renders the displayed patients as patients.csv.
func (c *Controller) Export() *export.Document {
	patients := c.Patients()
	rows := make([][]string, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, []string{
			p.ID.String(),
			p.Name,
			p.UID,
			p.Phone,
			strconv.Itoa(p.Age),
			string(p.Gender),
			string(p.BloodGroup),
		})
	}
	return export.CSV(ExportFilename, exportHeader, rows)
}

func (c *Controller) WriteCSV(w io.Writer) error {
	_, err := c.Export().WriteTo(w)
	return err
}
