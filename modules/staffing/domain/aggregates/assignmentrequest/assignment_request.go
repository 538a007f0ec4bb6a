package assignmentrequest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrNotFound             = serrors.ErrNotFound.WithMessage("assignment request not found")
	ErrProjectRequired      = serrors.NewError("PROJECT_REQUIRED", "assignment request needs a project", "project_id")
	ErrInvalidDateRange     = serrors.NewError("INVALID_DATE_RANGE", "start date must not be after end date", "start_date")
	ErrWbsMismatch          = serrors.NewError("WBS_MISMATCH", "wbs element belongs to a different project", "wbs_element_id")
	ErrInvalidApproverGroup = serrors.NewError("INVALID_APPROVER_GROUP", "approver group does not belong to this tenant", "approver_group_id")
	ErrAlreadyResolved      = serrors.NewError("ALREADY_RESOLVED", "assignment request is already resolved", "")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// NormalizeAllocation clamps the requested percentage: unset falls back
// to full-time, anything above double allocation is capped. Values in
// (0, 200] pass through, so re-normalizing is a no-op.
func NormalizeAllocation(pct int) int {
	switch {
	case pct <= 0:
		return 100
	case pct > 200:
		return 200
	default:
		return pct
	}
}

// AssignmentRequest is immutable once resolved, except for notes, which
// only ever grow.
type AssignmentRequest struct {
	id              uuid.UUID
	tenantID        uuid.UUID
	requestedBy     uuid.UUID
	requestedFor    uuid.UUID
	projectID       uuid.UUID
	wbsElementID    *uuid.UUID
	approverGroupID uuid.UUID
	startDate       time.Time
	endDate         time.Time
	allocationPct   int
	notes           string
	status          Status
	resolvedAt      *time.Time
	resolvedBy      *uuid.UUID
	assignmentID    *uuid.UUID
	createdAt       time.Time
	updatedAt       time.Time
}

func New(
	tenantID, requestedBy, requestedFor, projectID uuid.UUID,
	wbsElementID *uuid.UUID,
	approverGroupID uuid.UUID,
	startDate, endDate time.Time,
	allocationPct int,
	notes string,
) AssignmentRequest {
	now := time.Now()
	return AssignmentRequest{
		id:              uuid.New(),
		tenantID:        tenantID,
		requestedBy:     requestedBy,
		requestedFor:    requestedFor,
		projectID:       projectID,
		wbsElementID:    wbsElementID,
		approverGroupID: approverGroupID,
		startDate:       startDate,
		endDate:         endDate,
		allocationPct:   NormalizeAllocation(allocationPct),
		notes:           notes,
		status:          StatusPending,
		createdAt:       now,
		updatedAt:       now,
	}
}

func Hydrate(
	id, tenantID, requestedBy, requestedFor, projectID uuid.UUID,
	wbsElementID *uuid.UUID,
	approverGroupID uuid.UUID,
	startDate, endDate time.Time,
	allocationPct int,
	notes string,
	status Status,
	resolvedAt *time.Time,
	resolvedBy, assignmentID *uuid.UUID,
	createdAt, updatedAt time.Time,
) AssignmentRequest {
	return AssignmentRequest{
		id:              id,
		tenantID:        tenantID,
		requestedBy:     requestedBy,
		requestedFor:    requestedFor,
		projectID:       projectID,
		wbsElementID:    wbsElementID,
		approverGroupID: approverGroupID,
		startDate:       startDate,
		endDate:         endDate,
		allocationPct:   allocationPct,
		notes:           notes,
		status:          status,
		resolvedAt:      resolvedAt,
		resolvedBy:      resolvedBy,
		assignmentID:    assignmentID,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (r AssignmentRequest) ID() uuid.UUID              { return r.id }
func (r AssignmentRequest) TenantID() uuid.UUID        { return r.tenantID }
func (r AssignmentRequest) RequestedBy() uuid.UUID     { return r.requestedBy }
func (r AssignmentRequest) RequestedFor() uuid.UUID    { return r.requestedFor }
func (r AssignmentRequest) ProjectID() uuid.UUID       { return r.projectID }
func (r AssignmentRequest) WbsElementID() *uuid.UUID   { return r.wbsElementID }
func (r AssignmentRequest) ApproverGroupID() uuid.UUID { return r.approverGroupID }
func (r AssignmentRequest) StartDate() time.Time       { return r.startDate }
func (r AssignmentRequest) EndDate() time.Time         { return r.endDate }
func (r AssignmentRequest) AllocationPct() int         { return r.allocationPct }
func (r AssignmentRequest) Notes() string              { return r.notes }
func (r AssignmentRequest) Status() Status             { return r.status }
func (r AssignmentRequest) ResolvedAt() *time.Time     { return r.resolvedAt }
func (r AssignmentRequest) ResolvedBy() *uuid.UUID     { return r.resolvedBy }
func (r AssignmentRequest) AssignmentID() *uuid.UUID   { return r.assignmentID }
func (r AssignmentRequest) CreatedAt() time.Time       { return r.createdAt }
func (r AssignmentRequest) UpdatedAt() time.Time       { return r.updatedAt }
func (r AssignmentRequest) IsZero() bool               { return r.id == uuid.Nil }

func (r AssignmentRequest) Approve(approverID uuid.UUID) (AssignmentRequest, error) {
	if r.status != StatusPending {
		return r, ErrAlreadyResolved
	}
	now := time.Now()
	r.status = StatusApproved
	r.resolvedAt = &now
	r.resolvedBy = &approverID
	r.updatedAt = now
	return r, nil
}

// Reject resolves the request and appends the reason to the existing
// notes rather than replacing them.
func (r AssignmentRequest) Reject(approverID uuid.UUID, reason string) (AssignmentRequest, error) {
	if r.status != StatusPending {
		return r, ErrAlreadyResolved
	}
	now := time.Now()
	r.status = StatusRejected
	r.resolvedAt = &now
	r.resolvedBy = &approverID
	r.notes = appendNote(r.notes, reason)
	r.updatedAt = now
	return r, nil
}

// WithAssignment links the created assignment back onto an approved
// request.
func (r AssignmentRequest) WithAssignment(assignmentID uuid.UUID) AssignmentRequest {
	r.assignmentID = &assignmentID
	r.updatedAt = time.Now()
	return r
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
