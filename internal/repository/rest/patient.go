package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

// ISO-8601 in UTC with millisecond precision
const createdAtLayout = "2006-01-02T15:04:05.000Z"

var _ repository.PatientRepository = (*Client)(nil)

func (c *Client) ListAll(ctx context.Context) ([]*model.Patient, error) {
	var patients []*model.Patient
	if err := c.do(ctx, request{operation: "list", method: http.MethodGet}, &patients); err != nil {
		return nil, err
	}

	valid := make([]*model.Patient, 0, len(patients))
	for _, p := range patients {
		if p != nil && p.ID.Valid() {
			valid = append(valid, p)
		}
	}
	return valid, nil
}

func (c *Client) GetByID(ctx context.Context, id model.PatientID) (*model.Patient, error) {
	if !id.Valid() {
		return nil, apperrors.InvalidArgument("Invalid patient ID")
	}

	var patient model.Patient
	err := c.do(ctx, request{operation: "get", method: http.MethodGet, id: id.String()}, &patient)
	if err != nil {
		return nil, notFoundAsPatient(err)
	}
	return &patient, nil
}

// Create assigns id = max(existing ids) + 1 and stamps createdAt before
// posting. The list-then-post sequence is not atomic: two clients creating at
// the same time can compute the same id. The store does not prevent that.
func (c *Client) Create(ctx context.Context, draft *model.Patient) (*model.Patient, error) {
	if draft == nil {
		return nil, apperrors.InvalidArgument("Invalid patient record")
	}

	existing, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	toCreate := *draft
	toCreate.ID = NextID(existing)
	toCreate.CreatedAt = c.now().UTC().Format(createdAtLayout)

	var created model.Patient
	if err := c.do(ctx, request{operation: "create", method: http.MethodPost, body: &toCreate}, &created); err != nil {
		return nil, err
	}
	if !created.ID.Valid() {
		return &toCreate, nil
	}
	return &created, nil
}

// NextID returns max(ids) + 1, or 1 for an empty collection.
func NextID(patients []*model.Patient) model.PatientID {
	var highest model.PatientID
	for _, p := range patients {
		if p != nil && p.ID > highest {
			highest = p.ID
		}
	}
	return highest + 1
}

func (c *Client) Update(ctx context.Context, id model.PatientID, patch *model.PatientPatch) (*model.Patient, error) {
	if !id.Valid() {
		return nil, apperrors.InvalidArgument("Invalid patient ID for update")
	}
	if patch == nil {
		patch = &model.PatientPatch{}
	}

	var updated model.Patient
	err := c.do(ctx, request{operation: "update", method: http.MethodPatch, id: id.String(), body: patch}, &updated)
	if err != nil {
		return nil, notFoundAsPatient(err)
	}
	return &updated, nil
}

func (c *Client) Delete(ctx context.Context, id model.PatientID) error {
	if !id.Valid() {
		return apperrors.InvalidArgument("Invalid patient ID for deletion")
	}

	err := c.do(ctx, request{operation: "delete", method: http.MethodDelete, id: id.String()}, nil)
	return notFoundAsPatient(err)
}

func (c *Client) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	if strings.TrimSpace(query) == "" {
		return c.ListAll(ctx)
	}
	return c.list(ctx, "search", url.Values{"q": {query}})
}

func (c *Client) FilterByBloodGroup(ctx context.Context, group model.BloodGroup) ([]*model.Patient, error) {
	if group.IsAll() {
		return c.ListAll(ctx)
	}
	return c.list(ctx, "filter", url.Values{"bloodGroup": {string(group)}})
}

// CheckUIDExists returns the patients holding uid. A blank uid short-circuits
// to an empty result without touching the store.
func (c *Client) CheckUIDExists(ctx context.Context, uid string) ([]*model.Patient, error) {
	if strings.TrimSpace(uid) == "" {
		return []*model.Patient{}, nil
	}
	return c.list(ctx, "check_uid", url.Values{"uid": {uid}})
}

func (c *Client) list(ctx context.Context, operation string, query url.Values) ([]*model.Patient, error) {
	patients := []*model.Patient{}
	if err := c.do(ctx, request{operation: operation, method: http.MethodGet, query: query}, &patients); err != nil {
		return nil, fmt.Errorf("%s patients: %w", operation, err)
	}
	return patients, nil
}

func notFoundAsPatient(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NotFound("Patient not found", err)
	}
	return err
}
