package patient

import (
	"context"
	"sync"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository/rest"
	apperrors "github.com/jwalitptl/patient-records/pkg/errors"
)

type fakeRepo struct {
	mu       sync.Mutex
	patients []*model.Patient
	counts   map[string]int

	getErr    error
	createErr error
	updateErr error
	checkErr  error
}

func newFakeRepo(seed ...*model.Patient) *fakeRepo {
	r := &fakeRepo{counts: map[string]int{}}
	for _, p := range seed {
		cp := *p
		r.patients = append(r.patients, &cp)
	}
	return r
}

func (r *fakeRepo) calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

func (r *fakeRepo) remove(id model.PatientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.patients {
		if p.ID == id {
			r.patients = append(r.patients[:i], r.patients[i+1:]...)
			return
		}
	}
}

func (r *fakeRepo) find(id model.PatientID) *model.Patient {
	for _, p := range r.patients {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *fakeRepo) snapshot() []*model.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (r *fakeRepo) ListAll(context.Context) ([]*model.Patient, error) {
	r.mu.Lock()
	r.counts["list"]++
	r.mu.Unlock()
	return r.snapshot(), nil
}

func (r *fakeRepo) GetByID(_ context.Context, id model.PatientID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts["get"]++
	if r.getErr != nil {
		return nil, r.getErr
	}
	p := r.find(id)
	if p == nil {
		return nil, apperrors.NotFound("Patient not found", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) Create(_ context.Context, draft *model.Patient) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts["create"]++
	if r.createErr != nil {
		return nil, r.createErr
	}
	cp := *draft
	cp.ID = rest.NextID(r.patients)
	cp.CreatedAt = "2024-01-01T00:00:00.000Z"
	r.patients = append(r.patients, &cp)
	out := cp
	return &out, nil
}

func (r *fakeRepo) Update(_ context.Context, id model.PatientID, patch *model.PatientPatch) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts["update"]++
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	p := r.find(id)
	if p == nil {
		return nil, apperrors.NotFound("Patient not found", nil)
	}
	patch.Apply(p)
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) Delete(_ context.Context, id model.PatientID) error {
	r.mu.Lock()
	r.counts["delete"]++
	r.mu.Unlock()
	r.remove(id)
	return nil
}

func (r *fakeRepo) Search(ctx context.Context, _ string) ([]*model.Patient, error) {
	return r.ListAll(ctx)
}

func (r *fakeRepo) FilterByBloodGroup(ctx context.Context, _ model.BloodGroup) ([]*model.Patient, error) {
	return r.ListAll(ctx)
}

func (r *fakeRepo) CheckUIDExists(_ context.Context, uid string) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts["check_uid"]++
	if r.checkErr != nil {
		return nil, r.checkErr
	}
	out := []*model.Patient{}
	for _, p := range r.patients {
		if p.UID == uid {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type notice struct {
	severity model.Severity
	message  string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Notify(severity model.Severity, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{severity, message})
}

func (n *fakeNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

func (n *fakeNotifier) last() notice {
	all := n.all()
	if len(all) == 0 {
		return notice{}
	}
	return all[len(all)-1]
}
