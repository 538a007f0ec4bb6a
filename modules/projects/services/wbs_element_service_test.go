package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/projects/domain/aggregates/wbselement"
	"github.com/crewplane/crewplane/modules/projects/domain/entities/project"
	"github.com/crewplane/crewplane/modules/projects/services"
	"github.com/crewplane/crewplane/pkg/eventbus"
	"github.com/crewplane/crewplane/pkg/itf"
	"github.com/crewplane/crewplane/pkg/logging"
	"github.com/crewplane/crewplane/pkg/serrors"
)

type memProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*project.Project
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{projects: make(map[uuid.UUID]*project.Project)}
}

func (r *memProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return p, nil
}

func (r *memProjectRepo) Create(_ context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID()] = p
	return nil
}

func (r *memProjectRepo) List(_ context.Context) ([]*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*project.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out, nil
}

type memWbsRepo struct {
	mu       sync.Mutex
	elements map[uuid.UUID]*wbselement.WbsElement
}

func newMemWbsRepo() *memWbsRepo {
	return &memWbsRepo{elements: make(map[uuid.UUID]*wbselement.WbsElement)}
}

func (r *memWbsRepo) GetByID(_ context.Context, id uuid.UUID) (*wbselement.WbsElement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elements[id]
	if !ok || e.Deletion().IsDeleted() {
		return nil, wbselement.ErrNotFound
	}
	return e, nil
}

func (r *memWbsRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*wbselement.WbsElement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*wbselement.WbsElement
	for _, e := range r.elements {
		if e.ProjectID() == projectID && !e.Deletion().IsDeleted() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memWbsRepo) Create(_ context.Context, e *wbselement.WbsElement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.elements {
		if existing.ProjectID() == e.ProjectID() && existing.Code() == e.Code() {
			return wbselement.ErrDuplicateCode
		}
	}
	r.elements[e.ID()] = e
	return nil
}

func (r *memWbsRepo) Update(_ context.Context, e *wbselement.WbsElement, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.elements[e.ID()]
	if !ok {
		return wbselement.ErrNotFound
	}
	if current.Version() != expectedVersion {
		return serrors.ErrConcurrentModification
	}
	r.elements[e.ID()] = wbselement.Hydrate(
		e.ID(), e.TenantID(), e.ProjectID(), e.Code(), e.Name(),
		e.ApprovalStatus(), e.Status(), e.ApproverUserID(), e.ApprovedAt(),
		e.ApprovalNotes(), e.History(), expectedVersion+1, e.Deletion(),
		e.CreatedAt(), e.UpdatedAt(),
	)
	return nil
}

func (r *memWbsRepo) GetResource(_ context.Context, id uuid.UUID, includeDeleted bool) (lifecycle.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elements[id]
	if !ok {
		return nil, wbselement.ErrNotFound
	}
	if e.Deletion().IsDeleted() && !includeDeleted {
		return nil, wbselement.ErrNotFound
	}
	return e, nil
}

func (r *memWbsRepo) SetDeletion(_ context.Context, id uuid.UUID, state lifecycle.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elements[id]
	if !ok {
		return wbselement.ErrNotFound
	}
	r.elements[id] = wbselement.Hydrate(
		e.ID(), e.TenantID(), e.ProjectID(), e.Code(), e.Name(),
		e.ApprovalStatus(), e.Status(), e.ApproverUserID(), e.ApprovedAt(),
		e.ApprovalNotes(), e.History(), e.Version(), state,
		e.CreatedAt(), e.UpdatedAt(),
	)
	return nil
}

func (r *memWbsRepo) Purge(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.elements[id]; !ok {
		return wbselement.ErrNotFound
	}
	delete(r.elements, id)
	return nil
}

type wbsFixture struct {
	svc       *services.WbsElementService
	repo      *memWbsRepo
	projects  *memProjectRepo
	ctx       context.Context
	projectID uuid.UUID
	approver  uuid.UUID
}

func newWbsFixture(t *testing.T) *wbsFixture {
	t.Helper()
	tenantID := uuid.New()
	repo := newMemWbsRepo()
	projects := newMemProjectRepo()
	bus := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))
	svc := services.NewWbsElementService(repo, projects, bus)
	ctx := itf.Context(tenantID, uuid.New())

	p := project.New(tenantID, "Terminal Expansion")
	require.NoError(t, projects.Create(ctx, p))

	return &wbsFixture{
		svc:       svc,
		repo:      repo,
		projects:  projects,
		ctx:       ctx,
		projectID: p.ID(),
		approver:  uuid.New(),
	}
}

func (f *wbsFixture) createElement(t *testing.T, code string, opts ...wbselement.Option) *wbselement.WbsElement {
	t.Helper()
	e, err := f.svc.Create(f.ctx, f.projectID, code, "Element "+code, opts...)
	require.NoError(t, err)
	return e
}

func TestWbsElementService_Create(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001")
	require.Equal(t, wbselement.ApprovalDraft, e.ApprovalStatus())
	require.Equal(t, wbselement.StatusDraft, e.Status())

	_, err := f.svc.Create(f.ctx, uuid.New(), "WBS-002", "orphan")
	require.ErrorIs(t, err, project.ErrNotFound, "unknown project id must not be distinguishable from missing")
}

func TestWbsElementService_Create_DuplicateCode(t *testing.T) {
	f := newWbsFixture(t)

	f.createElement(t, "WBS-001")
	_, err := f.svc.Create(f.ctx, f.projectID, "WBS-001", "duplicate")
	require.ErrorIs(t, err, wbselement.ErrDuplicateCode)
}

func TestWbsElementService_SubmitRequiresApprover(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001")
	_, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "")
	require.ErrorIs(t, err, wbselement.ErrNoApproverAssigned)

	_, err = f.svc.SetApprover(f.ctx, e.ID(), f.approver)
	require.NoError(t, err)

	submitted, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "ready")
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalPending, submitted.ApprovalStatus())
}

func TestWbsElementService_ApproveActivates(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))
	_, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "")
	require.NoError(t, err)

	approved, err := f.svc.Approve(f.ctx, e.ID(), "looks good")
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalApproved, approved.ApprovalStatus())
	require.Equal(t, wbselement.StatusActive, approved.Status())
	require.NotNil(t, approved.ApprovedAt())
}

func TestWbsElementService_RejectRequiresReason(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))
	_, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "")
	require.NoError(t, err)

	_, err = f.svc.Reject(f.ctx, e.ID(), "   ")
	require.ErrorIs(t, err, wbselement.ErrReasonRequired)

	rejected, err := f.svc.Reject(f.ctx, e.ID(), "budget code mismatch")
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalRejected, rejected.ApprovalStatus())
}

func TestWbsElementService_ResubmissionAfterRejection(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))
	_, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "")
	require.NoError(t, err)
	_, err = f.svc.Reject(f.ctx, e.ID(), "needs detail")
	require.NoError(t, err)

	resubmitted, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "detail added")
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalPending, resubmitted.ApprovalStatus())

	approved, err := f.svc.Approve(f.ctx, e.ID(), "")
	require.NoError(t, err)
	require.Equal(t, wbselement.StatusActive, approved.Status())
}

func TestWbsElementService_SuspendAndClose(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))
	_, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "")
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, e.ID(), "")
	require.NoError(t, err)

	suspended, err := f.svc.Suspend(f.ctx, e.ID(), "paused by finance")
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalSuspended, suspended.ApprovalStatus())
	require.Equal(t, wbselement.StatusDraft, suspended.Status())

	closed, err := f.svc.Close(f.ctx, e.ID(), "")
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalClosed, closed.ApprovalStatus())
	require.Equal(t, wbselement.StatusClosed, closed.Status())
}

// Every (state, action) pair not explicitly allowed must fail without
// changing the element.
func TestWbsElementService_TransitionMatrix(t *testing.T) {
	f := newWbsFixture(t)

	type action struct {
		name string
		run  func(id uuid.UUID) error
	}
	actions := []action{
		{"submit", func(id uuid.UUID) error { _, err := f.svc.SubmitForApproval(f.ctx, id, ""); return err }},
		{"approve", func(id uuid.UUID) error { _, err := f.svc.Approve(f.ctx, id, ""); return err }},
		{"reject", func(id uuid.UUID) error { _, err := f.svc.Reject(f.ctx, id, "reason"); return err }},
		{"suspend", func(id uuid.UUID) error { _, err := f.svc.Suspend(f.ctx, id, ""); return err }},
		{"close", func(id uuid.UUID) error { _, err := f.svc.Close(f.ctx, id, ""); return err }},
	}

	allowed := map[wbselement.ApprovalStatus]map[string]bool{
		wbselement.ApprovalDraft:     {"submit": true, "close": true},
		wbselement.ApprovalPending:   {"approve": true, "reject": true},
		wbselement.ApprovalApproved:  {"suspend": true, "close": true},
		wbselement.ApprovalRejected:  {"submit": true},
		wbselement.ApprovalSuspended: {"close": true},
		wbselement.ApprovalClosed:    {},
	}

	// Drive a fresh element into each source state.
	intoState := map[wbselement.ApprovalStatus]func(id uuid.UUID){
		wbselement.ApprovalDraft: func(id uuid.UUID) {},
		wbselement.ApprovalPending: func(id uuid.UUID) {
			_, err := f.svc.SubmitForApproval(f.ctx, id, "")
			require.NoError(t, err)
		},
		wbselement.ApprovalApproved: func(id uuid.UUID) {
			_, err := f.svc.SubmitForApproval(f.ctx, id, "")
			require.NoError(t, err)
			_, err = f.svc.Approve(f.ctx, id, "")
			require.NoError(t, err)
		},
		wbselement.ApprovalRejected: func(id uuid.UUID) {
			_, err := f.svc.SubmitForApproval(f.ctx, id, "")
			require.NoError(t, err)
			_, err = f.svc.Reject(f.ctx, id, "no")
			require.NoError(t, err)
		},
		wbselement.ApprovalSuspended: func(id uuid.UUID) {
			_, err := f.svc.SubmitForApproval(f.ctx, id, "")
			require.NoError(t, err)
			_, err = f.svc.Approve(f.ctx, id, "")
			require.NoError(t, err)
			_, err = f.svc.Suspend(f.ctx, id, "")
			require.NoError(t, err)
		},
		wbselement.ApprovalClosed: func(id uuid.UUID) {
			_, err := f.svc.Close(f.ctx, id, "")
			require.NoError(t, err)
		},
	}

	i := 0
	for state, setup := range intoState {
		for _, act := range actions {
			i++
			e := f.createElement(t, uuid.NewString(), wbselement.WithApprover(f.approver))
			setup(e.ID())

			before, err := f.repo.GetByID(f.ctx, e.ID())
			require.NoError(t, err)
			require.Equal(t, state, before.ApprovalStatus())

			err = act.run(e.ID())
			if allowed[state][act.name] {
				require.NoError(t, err, "state %s action %s", state, act.name)
				continue
			}
			require.ErrorIs(t, err, wbselement.ErrInvalidTransition, "state %s action %s", state, act.name)

			after, getErr := f.repo.GetByID(f.ctx, e.ID())
			require.NoError(t, getErr)
			require.Equal(t, state, after.ApprovalStatus(), "rejected action must not change state")
		}
	}
	require.Equal(t, len(intoState)*len(actions), i)
}

func TestWbsElementService_HistoryAppended(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))
	_, err := f.svc.SubmitForApproval(f.ctx, e.ID(), "first")
	require.NoError(t, err)
	_, err = f.svc.Reject(f.ctx, e.ID(), "fix codes")
	require.NoError(t, err)
	_, err = f.svc.SubmitForApproval(f.ctx, e.ID(), "fixed")
	require.NoError(t, err)

	current, err := f.repo.GetByID(f.ctx, e.ID())
	require.NoError(t, err)
	history := current.History()
	require.Len(t, history, 3)
	require.Equal(t, wbselement.ApprovalDraft, history[0].From)
	require.Equal(t, wbselement.ApprovalPending, history[0].To)
	require.Equal(t, wbselement.ApprovalRejected, history[1].To)
	require.Equal(t, "fix codes", history[1].Notes)
	require.Equal(t, wbselement.ApprovalPending, history[2].To)
}

func TestWbsElementService_ConcurrentModification(t *testing.T) {
	f := newWbsFixture(t)

	e := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))

	// Simulate a stale write: bump the version underneath the caller.
	stale, err := f.repo.GetByID(f.ctx, e.ID())
	require.NoError(t, err)
	require.NoError(t, f.repo.Update(f.ctx, stale, stale.Version()))

	err = f.repo.Update(f.ctx, stale, stale.Version())
	require.ErrorIs(t, err, serrors.ErrConcurrentModification)
}

func TestWbsElementService_BulkSubmit_PartialFailure(t *testing.T) {
	f := newWbsFixture(t)

	draft := f.createElement(t, "WBS-001", wbselement.WithApprover(f.approver))
	approved := f.createElement(t, "WBS-002", wbselement.WithApprover(f.approver))
	_, err := f.svc.SubmitForApproval(f.ctx, approved.ID(), "")
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, approved.ID(), "")
	require.NoError(t, err)

	result, err := f.svc.BulkSubmitForApproval(f.ctx, []uuid.UUID{draft.ID(), approved.ID()}, "")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{draft.ID()}, result.SucceededIDs)
	require.Len(t, result.Failures, 1)
	require.Equal(t, approved.ID(), result.Failures[0].ID)
	require.Contains(t, result.Failures[0].Reason, "INVALID_TRANSITION")

	// The failed item is untouched; the succeeded one moved.
	got, err := f.repo.GetByID(f.ctx, approved.ID())
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalApproved, got.ApprovalStatus())

	got, err = f.repo.GetByID(f.ctx, draft.ID())
	require.NoError(t, err)
	require.Equal(t, wbselement.ApprovalPending, got.ApprovalStatus())
}

func TestWbsElementService_Bulk_EmptyBatch(t *testing.T) {
	f := newWbsFixture(t)

	_, err := f.svc.BulkApprove(f.ctx, nil, "")
	require.ErrorIs(t, err, wbselement.ErrEmptyBatch)
}
