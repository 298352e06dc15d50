package patient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/internal/model"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

func TestGuardVerify(t *testing.T) {
	repo := newFakeRepo(&model.Patient{ID: 1, Name: "Alice Smith", UID: "11111111111"})
	g := NewGuard(repo)
	ctx := context.Background()

	fresh, err := g.Verify(ctx, &model.Patient{ID: 1, Name: "stale name"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", fresh.Name)

	_, err = g.Verify(ctx, &model.Patient{ID: 5})
	assert.True(t, IsVanished(err))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	repo.getErr = apperrors.Unreachable(nil)
	_, err = g.Verify(ctx, &model.Patient{ID: 1})
	assert.False(t, IsVanished(err))
	assert.ErrorIs(t, err, apperrors.ErrUnreachable)
}

func TestGuardRejectsInvalidRecord(t *testing.T) {
	repo := newFakeRepo()
	g := NewGuard(repo)

	for _, p := range []*model.Patient{nil, {}, {ID: -2}} {
		_, err := g.Verify(context.Background(), p)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		assert.Equal(t, "Invalid patient record", apperrors.MessageOf(err))
	}
	assert.Zero(t, repo.calls("get"))
}
