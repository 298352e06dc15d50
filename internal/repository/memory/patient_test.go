package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/internal/model"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

func seed() []*model.Patient {
	return []*model.Patient{
		{ID: 1, Name: "Alice Smith", UID: "11111111111", BloodGroup: model.BloodGroupAPos, Address: "Elm Street"},
		{ID: 2, Name: "Bob Jones", UID: "22222222222", BloodGroup: model.BloodGroupONeg},
		{ID: 3, Name: "Carol White", UID: "11111111111", BloodGroup: model.BloodGroupAPos},
	}
}

func ids(patients []*model.Patient) []model.PatientID {
	out := make([]model.PatientID, 0, len(patients))
	for _, p := range patients {
		out = append(out, p.ID)
	}
	return out
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := NewPatientStore(seed()...)

	tests := []struct {
		name    string
		filters model.PatientFilters
		want    []model.PatientID
	}{
		{"all", model.PatientFilters{}, []model.PatientID{1, 2, 3}},
		{"sentinel", model.PatientFilters{BloodGroup: model.AllBloodGroups}, []model.PatientID{1, 2, 3}},
		{"blood group", model.PatientFilters{BloodGroup: model.BloodGroupAPos}, []model.PatientID{1, 3}},
		{"uid exact", model.PatientFilters{UID: "11111111111"}, []model.PatientID{1, 3}},
		{"uid prefix does not match", model.PatientFilters{UID: "1111"}, []model.PatientID{}},
		{"free text any field", model.PatientFilters{SearchTerm: "elm"}, []model.PatientID{1}},
		{"free text case insensitive", model.PatientFilters{SearchTerm: "JONES"}, []model.PatientID{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestCreateGetPatchDelete(t *testing.T) {
	ctx := context.Background()
	s := NewPatientStore()

	created, err := s.Create(ctx, &model.Patient{ID: 5, Name: "Dan"})
	require.NoError(t, err)
	assert.Equal(t, model.PatientID(5), created.ID)

	_, err = s.Create(ctx, &model.Patient{ID: 5, Name: "Duplicate"})
	assert.Equal(t, apperrors.KindServer, apperrors.KindOf(err))

	auto, err := s.Create(ctx, &model.Patient{Name: "No id"})
	require.NoError(t, err)
	assert.Equal(t, model.PatientID(6), auto.ID)

	phone := "5555555555"
	patched, err := s.Patch(ctx, 5, &model.PatientPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Dan", patched.Name)
	assert.Equal(t, phone, patched.Phone)

	require.NoError(t, s.Delete(ctx, 5))
	_, err = s.Get(ctx, 5)
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(s.Delete(ctx, 5)))
	_, err = s.Patch(ctx, 5, &model.PatientPatch{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewPatientStore(seed()...)

	p, err := s.Get(ctx, 1)
	require.NoError(t, err)
	p.Name = "changed"

	again, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", again.Name)
}
