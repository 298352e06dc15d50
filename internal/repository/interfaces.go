package repository

import (
	"context"

	"github.com/jwalitptl/patient-records/internal/model"
)

type (
	// PatientRepository is the uniform access contract to the remote patient store.
	// Errors are *errors.AppError values from pkg/errors.
	PatientRepository interface {
		ListAll(ctx context.Context) ([]*model.Patient, error)
		GetByID(ctx context.Context, id model.PatientID) (*model.Patient, error)
		Create(ctx context.Context, draft *model.Patient) (*model.Patient, error)
		Update(ctx context.Context, id model.PatientID, patch *model.PatientPatch) (*model.Patient, error)
		Delete(ctx context.Context, id model.PatientID) error
		Search(ctx context.Context, query string) ([]*model.Patient, error)
		FilterByBloodGroup(ctx context.Context, group model.BloodGroup) ([]*model.Patient, error)
		CheckUIDExists(ctx context.Context, uid string) ([]*model.Patient, error)
	}

	// PatientStore is the backing collection of the development store server.
	// It assigns nothing and enforces no uniqueness, like the real store.
	PatientStore interface {
		List(ctx context.Context, filters model.PatientFilters) ([]*model.Patient, error)
		Get(ctx context.Context, id model.PatientID) (*model.Patient, error)
		Create(ctx context.Context, patient *model.Patient) (*model.Patient, error)
		Patch(ctx context.Context, id model.PatientID, patch *model.PatientPatch) (*model.Patient, error)
		Delete(ctx context.Context, id model.PatientID) error
	}
)
