package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/entities/group"
	"github.com/crewplane/crewplane/modules/projects/domain/aggregates/wbselement"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignment"
	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignmentrequest"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type AssignmentRequestCreatedEvent struct {
	Request assignmentrequest.AssignmentRequest
}

type AssignmentRequestApprovedEvent struct {
	Request    assignmentrequest.AssignmentRequest
	ApprovedBy uuid.UUID
}

// AssignmentRequestRejectedEvent doubles as the audit trail hook: the
// logging module appends a "rejected" history record for the linked
// entity when it sees this event.
type AssignmentRequestRejectedEvent struct {
	Request    assignmentrequest.AssignmentRequest
	RejectedBy uuid.UUID
	Reason     string
}

type AssignmentRequestService struct {
	requests    assignmentrequest.Repository
	assignments *AssignmentService
	wbsElements wbselement.Repository
	groups      group.Repository
	publisher   eventbus.EventBus
}

func NewAssignmentRequestService(
	requests assignmentrequest.Repository,
	assignments *AssignmentService,
	wbsElements wbselement.Repository,
	groups group.Repository,
	publisher eventbus.EventBus,
) *AssignmentRequestService {
	return &AssignmentRequestService{
		requests:    requests,
		assignments: assignments,
		wbsElements: wbsElements,
		groups:      groups,
		publisher:   publisher,
	}
}

func (s *AssignmentRequestService) GetByID(ctx context.Context, id uuid.UUID) (assignmentrequest.AssignmentRequest, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (assignmentrequest.AssignmentRequest, error) {
		return s.requests.GetByID(txCtx, id)
	})
}

func (s *AssignmentRequestService) ListPending(ctx context.Context) ([]assignmentrequest.AssignmentRequest, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]assignmentrequest.AssignmentRequest, error) {
		return s.requests.ListPending(txCtx)
	})
}

func (s *AssignmentRequestService) Create(ctx context.Context, dto *assignmentrequest.CreateDTO) (assignmentrequest.AssignmentRequest, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	if errs, ok := dto.Ok(); !ok {
		return assignmentrequest.AssignmentRequest{}, errs
	}

	var created assignmentrequest.AssignmentRequest
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		if dto.WbsElementID != nil {
			element, err := s.wbsElements.GetByID(txCtx, *dto.WbsElementID)
			if err != nil {
				return err
			}
			if element.ProjectID() != dto.ProjectID {
				return assignmentrequest.ErrWbsMismatch
			}
		}

		approverGroupID, err := s.resolveApproverGroup(txCtx, dto.ApproverGroupID)
		if err != nil {
			return err
		}

		created = dto.ToEntity(tenantID, identity.UserID, approverGroupID)
		return s.requests.Create(txCtx, created)
	})
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	s.publisher.Publish(AssignmentRequestCreatedEvent{Request: created})
	return created, nil
}

// Approve resolves a pending request. With createAssignment set it also
// creates the assignment in the same transaction, running the standard
// overlap check, and links it back onto the request.
func (s *AssignmentRequestService) Approve(ctx context.Context, id uuid.UUID, createAssignment bool, allocationOverride *int) (assignmentrequest.AssignmentRequest, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	var resolved assignmentrequest.AssignmentRequest
	var created *assignment.Assignment
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		current, err := s.requests.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		resolved, err = current.Approve(identity.UserID)
		if err != nil {
			return err
		}

		if createAssignment {
			pct := resolved.AllocationPct()
			if allocationOverride != nil {
				pct = assignmentrequest.NormalizeAllocation(*allocationOverride)
			}
			span, err := daySpan(resolved.StartDate(), resolved.EndDate())
			if err != nil {
				return err
			}
			a := assignment.New(
				resolved.TenantID(),
				resolved.RequestedFor(),
				resolved.ProjectID(),
				resolved.WbsElementID(),
				span,
				pct,
			)
			if err := s.assignments.createInTx(txCtx, a); err != nil {
				return err
			}
			resolved = resolved.WithAssignment(a.ID())
			created = &a
		}

		return s.requests.Resolve(txCtx, resolved)
	})
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	// The assignment born out of the approval announces itself the same
	// way a directly created one does.
	if created != nil {
		s.publisher.Publish(AssignmentCreatedEvent{Assignment: *created})
	}
	s.publisher.Publish(AssignmentRequestApprovedEvent{Request: resolved, ApprovedBy: identity.UserID})
	return resolved, nil
}

func (s *AssignmentRequestService) Reject(ctx context.Context, id uuid.UUID, reason string) (assignmentrequest.AssignmentRequest, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	var resolved assignmentrequest.AssignmentRequest
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		current, err := s.requests.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		resolved, err = current.Reject(identity.UserID, reason)
		if err != nil {
			return err
		}
		return s.requests.Resolve(txCtx, resolved)
	})
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	s.publisher.Publish(AssignmentRequestRejectedEvent{Request: resolved, RejectedBy: identity.UserID, Reason: reason})
	return resolved, nil
}

// resolveApproverGroup validates a caller-supplied group or falls back to
// the tenant's system-administrator group.
func (s *AssignmentRequestService) resolveApproverGroup(ctx context.Context, groupID *uuid.UUID) (uuid.UUID, error) {
	if groupID != nil {
		g, err := s.groups.GetByID(ctx, *groupID)
		if err != nil {
			if errors.Is(err, group.ErrNotFound) {
				return uuid.Nil, assignmentrequest.ErrInvalidApproverGroup
			}
			return uuid.Nil, err
		}
		return g.ID(), nil
	}

	g, err := s.groups.GetSystemAdmin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return g.ID(), nil
}

// daySpan widens a whole-day date range into the half-open instant
// interval an assignment occupies: from the first day's start through the
// end of the last day.
func daySpan(startDate, endDate time.Time) (schedule.Interval, error) {
	return schedule.NewInterval(startDate, endDate.Add(24*time.Hour))
}
