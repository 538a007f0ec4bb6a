package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignment"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type AssignmentCreatedEvent struct {
	Assignment assignment.Assignment
}

type AssignmentEndedEvent struct {
	Assignment assignment.Assignment
}

type AssignmentService struct {
	repo      assignment.Repository
	publisher eventbus.EventBus
}

func NewAssignmentService(repo assignment.Repository, publisher eventbus.EventBus) *AssignmentService {
	return &AssignmentService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *AssignmentService) GetByID(ctx context.Context, id uuid.UUID) (assignment.Assignment, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (assignment.Assignment, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *AssignmentService) ListByPerson(ctx context.Context, personID uuid.UUID) ([]assignment.Assignment, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]assignment.Assignment, error) {
		return s.repo.ListByPerson(txCtx, personID)
	})
}

// Create claims the person's time over the interval. The overlap
// pre-check runs in the same transaction as the insert; the store's
// exclusion constraint closes the race, exactly as for bookings.
func (s *AssignmentService) Create(
	ctx context.Context,
	personID, projectID uuid.UUID,
	wbsElementID *uuid.UUID,
	interval schedule.Interval,
	allocationPct int,
) (assignment.Assignment, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return assignment.Assignment{}, err
	}

	a := assignment.New(tenantID, personID, projectID, wbsElementID, interval, allocationPct)
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.createInTx(txCtx, a)
	})
	if err != nil {
		return assignment.Assignment{}, err
	}

	s.publisher.Publish(AssignmentCreatedEvent{Assignment: a})
	return a, nil
}

// createInTx is the transactional body of Create, shared with the
// approve-with-creation path so the assignment insert joins the request
// resolution in one transaction.
func (s *AssignmentService) createInTx(txCtx context.Context, a assignment.Assignment) error {
	existing, err := s.repo.ListOverlapping(txCtx, a.PersonID(), a.Interval())
	if err != nil {
		return err
	}
	entries := make([]schedule.Entry, len(existing))
	for i, e := range existing {
		entries[i] = e
	}
	if schedule.HasConflict(entries, a.PersonID(), a.Interval(), uuid.Nil) {
		return schedule.ErrConflictingInterval
	}
	return s.repo.Create(txCtx, a)
}

func (s *AssignmentService) End(ctx context.Context, id uuid.UUID) (assignment.Assignment, error) {
	return s.applyTransition(ctx, id, assignment.Assignment.End)
}

func (s *AssignmentService) Cancel(ctx context.Context, id uuid.UUID) (assignment.Assignment, error) {
	return s.applyTransition(ctx, id, assignment.Assignment.Cancel)
}

func (s *AssignmentService) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	fn func(assignment.Assignment) (assignment.Assignment, error),
) (assignment.Assignment, error) {
	var updated assignment.Assignment
	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		from := current.Status()
		updated, err = fn(current)
		if err != nil {
			return err
		}
		return s.repo.Update(txCtx, updated, from)
	})
	if err != nil {
		return assignment.Assignment{}, err
	}

	s.publisher.Publish(AssignmentEndedEvent{Assignment: updated})
	return updated, nil
}
