package memory

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

// patientStore keeps patients in insertion order. Like the remote store it
// behaves like, it enforces no uid uniqueness. A posted id that already exists
// is rejected the way json-server rejects it, with a 500.
type patientStore struct {
	mu       sync.RWMutex
	patients []*model.Patient
}

func NewPatientStore(seed ...*model.Patient) repository.PatientStore {
	s := &patientStore{}
	for _, p := range seed {
		cp := *p
		s.patients = append(s.patients, &cp)
	}
	return s
}

func (s *patientStore) List(_ context.Context, filters model.PatientFilters) ([]*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(filters.SearchTerm))
	result := make([]*model.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		if !filters.BloodGroup.IsAll() && p.BloodGroup != filters.BloodGroup {
			continue
		}
		if filters.UID != "" && p.UID != filters.UID {
			continue
		}
		if term != "" && !matches(p, term) {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

// matches is a case-insensitive substring search over every field value.
func matches(p *model.Patient, term string) bool {
	values := []string{
		p.ID.String(), p.Name, p.UID, p.Phone, p.Email, strconv.Itoa(p.Age),
		string(p.Gender), string(p.BloodGroup), p.Address, p.MedicalHistory,
		p.PhotoURL, p.CreatedAt,
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func (s *patientStore) Get(_ context.Context, id model.PatientID) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.NotFound("patient not found", nil)
	}
	cp := *s.patients[i]
	return &cp, nil
}

func (s *patientStore) Create(_ context.Context, patient *model.Patient) (*model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *patient
	if !cp.ID.Valid() {
		var highest model.PatientID
		for _, p := range s.patients {
			if p.ID > highest {
				highest = p.ID
			}
		}
		cp.ID = highest + 1
	} else if s.indexOf(cp.ID) >= 0 {
		return nil, &apperrors.AppError{
			Kind:    apperrors.KindServer,
			Status:  http.StatusInternalServerError,
			Message: "Insert failed, duplicate id",
		}
	}

	s.patients = append(s.patients, &cp)
	out := cp
	return &out, nil
}

func (s *patientStore) Patch(_ context.Context, id model.PatientID, patch *model.PatientPatch) (*model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.NotFound("patient not found", nil)
	}
	if patch != nil {
		patch.Apply(s.patients[i])
	}
	cp := *s.patients[i]
	return &cp, nil
}

func (s *patientStore) Delete(_ context.Context, id model.PatientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return apperrors.NotFound("patient not found", nil)
	}
	s.patients = append(s.patients[:i], s.patients[i+1:]...)
	return nil
}

// indexOf must be called with the lock held
func (s *patientStore) indexOf(id model.PatientID) int {
	for i, p := range s.patients {
		if p.ID == id {
			return i
		}
	}
	return -1
}
