package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

// ErrVanished reports that a record shown to the user is gone from the store.
var ErrVanished = errors.New("patient record no longer exists")

// Guard performs read-before-act existence checks. The check is best effort:
// the record can still disappear between Verify and the action that follows.
type Guard struct {
	repo repository.PatientRepository
}

func NewGuard(repo repository.PatientRepository) *Guard {
	return &Guard{repo: repo}
}

// Verify re-reads p from the store and returns the fresh copy.
func (g *Guard) Verify(ctx context.Context, p *model.Patient) (*model.Patient, error) {
	if p == nil || !p.ID.Valid() {
		return nil, apperrors.InvalidArgument("Invalid patient record")
	}

	fresh, err := g.repo.GetByID(ctx, p.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("patient %d: %w: %w", p.ID, ErrVanished, err)
		}
		return nil, err
	}
	return fresh, nil
}

func IsVanished(err error) bool {
	return errors.Is(err, ErrVanished)
}
