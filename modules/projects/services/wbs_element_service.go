package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/projects/domain/aggregates/wbselement"
	"github.com/crewplane/crewplane/modules/projects/domain/entities/project"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type WbsTransitionedEvent struct {
	Element  *wbselement.WbsElement
	From     wbselement.ApprovalStatus
	To       wbselement.ApprovalStatus
	ByUserID uuid.UUID
	Notes    string
}

type BulkFailure struct {
	ID     uuid.UUID
	Reason string
}

// BulkResult reports a bulk operation's partial outcome. Items succeed and
// fail independently; a failed id never rolls back the others.
type BulkResult struct {
	SucceededIDs []uuid.UUID
	Failures     []BulkFailure
}

type WbsElementService struct {
	repo      wbselement.Repository
	projects  project.Repository
	publisher eventbus.EventBus
}

func NewWbsElementService(repo wbselement.Repository, projects project.Repository, publisher eventbus.EventBus) *WbsElementService {
	return &WbsElementService{
		repo:      repo,
		projects:  projects,
		publisher: publisher,
	}
}

func (s *WbsElementService) GetByID(ctx context.Context, id uuid.UUID) (*wbselement.WbsElement, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*wbselement.WbsElement, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *WbsElementService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*wbselement.WbsElement, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*wbselement.WbsElement, error) {
		return s.repo.ListByProject(txCtx, projectID)
	})
}

func (s *WbsElementService) Create(ctx context.Context, projectID uuid.UUID, code, name string, opts ...wbselement.Option) (*wbselement.WbsElement, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	e := wbselement.New(tenantID, projectID, code, name, opts...)
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		if _, err := s.projects.GetByID(txCtx, projectID); err != nil {
			return err
		}
		return s.repo.Create(txCtx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *WbsElementService) SetApprover(ctx context.Context, id, approverUserID uuid.UUID) (*wbselement.WbsElement, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*wbselement.WbsElement, error) {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		updated := current.SetApprover(approverUserID)
		if err := s.repo.Update(txCtx, updated, current.Version()); err != nil {
			return nil, err
		}
		return updated, nil
	})
}

func (s *WbsElementService) SubmitForApproval(ctx context.Context, id uuid.UUID, notes string) (*wbselement.WbsElement, error) {
	return s.applyTransition(ctx, id, notes, (*wbselement.WbsElement).SubmitForApproval)
}

func (s *WbsElementService) Approve(ctx context.Context, id uuid.UUID, notes string) (*wbselement.WbsElement, error) {
	return s.applyTransition(ctx, id, notes, (*wbselement.WbsElement).Approve)
}

func (s *WbsElementService) Reject(ctx context.Context, id uuid.UUID, notes string) (*wbselement.WbsElement, error) {
	return s.applyTransition(ctx, id, notes, (*wbselement.WbsElement).Reject)
}

func (s *WbsElementService) Suspend(ctx context.Context, id uuid.UUID, notes string) (*wbselement.WbsElement, error) {
	return s.applyTransition(ctx, id, notes, (*wbselement.WbsElement).Suspend)
}

func (s *WbsElementService) Close(ctx context.Context, id uuid.UUID, notes string) (*wbselement.WbsElement, error) {
	return s.applyTransition(ctx, id, notes, (*wbselement.WbsElement).Close)
}

func (s *WbsElementService) BulkSubmitForApproval(ctx context.Context, ids []uuid.UUID, notes string) (BulkResult, error) {
	return s.applyBulk(ctx, ids, notes, s.SubmitForApproval)
}

func (s *WbsElementService) BulkApprove(ctx context.Context, ids []uuid.UUID, notes string) (BulkResult, error) {
	return s.applyBulk(ctx, ids, notes, s.Approve)
}

func (s *WbsElementService) BulkReject(ctx context.Context, ids []uuid.UUID, notes string) (BulkResult, error) {
	return s.applyBulk(ctx, ids, notes, s.Reject)
}

func (s *WbsElementService) BulkClose(ctx context.Context, ids []uuid.UUID, notes string) (BulkResult, error) {
	return s.applyBulk(ctx, ids, notes, s.Close)
}

func (s *WbsElementService) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	notes string,
	fn func(*wbselement.WbsElement, uuid.UUID, string) (*wbselement.WbsElement, error),
) (*wbselement.WbsElement, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return nil, err
	}

	var (
		from    wbselement.ApprovalStatus
		updated *wbselement.WbsElement
	)
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		from = current.ApprovalStatus()
		updated, err = fn(current, identity.UserID, notes)
		if err != nil {
			return err
		}
		return s.repo.Update(txCtx, updated, current.Version())
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(WbsTransitionedEvent{
		Element:  updated,
		From:     from,
		To:       updated.ApprovalStatus(),
		ByUserID: identity.UserID,
		Notes:    notes,
	})
	return updated, nil
}

// applyBulk runs the single-item operation per id, each in its own
// transaction. Partial completion is the expected outcome, not a batch
// failure.
func (s *WbsElementService) applyBulk(
	ctx context.Context,
	ids []uuid.UUID,
	notes string,
	fn func(context.Context, uuid.UUID, string) (*wbselement.WbsElement, error),
) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, wbselement.ErrEmptyBatch
	}

	var result BulkResult
	for _, id := range ids {
		if _, err := fn(ctx, id, notes); err != nil {
			result.Failures = append(result.Failures, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.SucceededIDs = append(result.SucceededIDs, id)
	}
	return result, nil
}
