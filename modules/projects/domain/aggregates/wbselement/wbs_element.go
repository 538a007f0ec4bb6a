// Package wbselement models cost-tracking work breakdown elements and the
// approval state machine that gates them.
//
// Approval transitions:
//
//	draft            -> pending_approval
//	rejected         -> pending_approval   (resubmission)
//	pending_approval -> approved | rejected
//	approved         -> suspended | closed
//	suspended        -> closed
//	draft            -> closed
//
// closed is terminal. The operational status derives from the approval
// status: active only while approved; suspension drops it back to draft.
package wbselement

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrNotFound           = serrors.ErrNotFound.WithMessage("wbs element not found")
	ErrInvalidTransition  = serrors.NewError("INVALID_TRANSITION", "approval status transition not allowed", "")
	ErrReasonRequired     = serrors.NewError("REASON_REQUIRED", "rejection requires a non-empty reason", "notes")
	ErrNoApproverAssigned = serrors.NewError("NO_APPROVER_ASSIGNED", "wbs element has no approver assigned", "approver_user_id")
	ErrDuplicateCode      = serrors.NewError("DUPLICATE_CODE", "wbs code already exists in this project", "code")
	ErrEmptyBatch         = serrors.NewError("EMPTY_BATCH", "bulk operation received no ids", "")
)

type ApprovalStatus string

const (
	ApprovalDraft     ApprovalStatus = "draft"
	ApprovalPending   ApprovalStatus = "pending_approval"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalSuspended ApprovalStatus = "suspended"
	ApprovalClosed    ApprovalStatus = "closed"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// HistoryRecord is an append-only trail entry written on every approval
// transition.
type HistoryRecord struct {
	ID       uuid.UUID
	From     ApprovalStatus
	To       ApprovalStatus
	ByUserID uuid.UUID
	Notes    string
	At       time.Time
}

type WbsElement struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	projectID      uuid.UUID
	code           string
	name           string
	approvalStatus ApprovalStatus
	status         Status
	approverUserID *uuid.UUID
	approvedAt     *time.Time
	approvalNotes  string
	history        []HistoryRecord
	version        int64
	deletion       lifecycle.State
	createdAt      time.Time
	updatedAt      time.Time
}

type Option func(e *WbsElement)

func WithApprover(approverUserID uuid.UUID) Option {
	return func(e *WbsElement) {
		e.approverUserID = &approverUserID
	}
}

func New(tenantID, projectID uuid.UUID, code, name string, opts ...Option) *WbsElement {
	now := time.Now()
	e := &WbsElement{
		id:             uuid.New(),
		tenantID:       tenantID,
		projectID:      projectID,
		code:           strings.TrimSpace(code),
		name:           name,
		approvalStatus: ApprovalDraft,
		status:         StatusDraft,
		deletion:       lifecycle.Active(),
		createdAt:      now,
		updatedAt:      now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func Hydrate(
	id, tenantID, projectID uuid.UUID,
	code, name string,
	approvalStatus ApprovalStatus,
	status Status,
	approverUserID *uuid.UUID,
	approvedAt *time.Time,
	approvalNotes string,
	history []HistoryRecord,
	version int64,
	deletion lifecycle.State,
	createdAt, updatedAt time.Time,
) *WbsElement {
	return &WbsElement{
		id:             id,
		tenantID:       tenantID,
		projectID:      projectID,
		code:           code,
		name:           name,
		approvalStatus: approvalStatus,
		status:         status,
		approverUserID: approverUserID,
		approvedAt:     approvedAt,
		approvalNotes:  approvalNotes,
		history:        history,
		version:        version,
		deletion:       deletion,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (e *WbsElement) ID() uuid.UUID                  { return e.id }
func (e *WbsElement) TenantID() uuid.UUID            { return e.tenantID }
func (e *WbsElement) ProjectID() uuid.UUID           { return e.projectID }
func (e *WbsElement) Code() string                   { return e.code }
func (e *WbsElement) Name() string                   { return e.name }
func (e *WbsElement) ApprovalStatus() ApprovalStatus { return e.approvalStatus }
func (e *WbsElement) Status() Status                 { return e.status }
func (e *WbsElement) ApproverUserID() *uuid.UUID     { return e.approverUserID }
func (e *WbsElement) ApprovedAt() *time.Time         { return e.approvedAt }
func (e *WbsElement) ApprovalNotes() string          { return e.approvalNotes }
func (e *WbsElement) History() []HistoryRecord       { return e.history }
func (e *WbsElement) Version() int64                 { return e.version }
func (e *WbsElement) CreatedAt() time.Time           { return e.createdAt }
func (e *WbsElement) UpdatedAt() time.Time           { return e.updatedAt }

func (e *WbsElement) EntityType() string        { return "wbs_element" }
func (e *WbsElement) Deletion() lifecycle.State { return e.deletion }

func (e *WbsElement) SetApprover(approverUserID uuid.UUID) *WbsElement {
	out := *e
	out.approverUserID = &approverUserID
	out.updatedAt = time.Now()
	return &out
}

// SubmitForApproval moves a draft or rejected element into the approval
// queue. An element with nobody to approve it cannot be submitted.
func (e *WbsElement) SubmitForApproval(byUserID uuid.UUID, notes string) (*WbsElement, error) {
	if e.approvalStatus != ApprovalDraft && e.approvalStatus != ApprovalRejected {
		return e, ErrInvalidTransition.WithMessage("only a draft or rejected element can be submitted for approval")
	}
	if e.approverUserID == nil {
		return e, ErrNoApproverAssigned
	}
	return e.transition(ApprovalPending, e.status, byUserID, notes), nil
}

func (e *WbsElement) Approve(byUserID uuid.UUID, notes string) (*WbsElement, error) {
	if e.approvalStatus != ApprovalPending {
		return e, ErrInvalidTransition.WithMessage("only a pending element can be approved")
	}
	out := e.transition(ApprovalApproved, StatusActive, byUserID, notes)
	now := time.Now()
	out.approvedAt = &now
	return out, nil
}

func (e *WbsElement) Reject(byUserID uuid.UUID, notes string) (*WbsElement, error) {
	if e.approvalStatus != ApprovalPending {
		return e, ErrInvalidTransition.WithMessage("only a pending element can be rejected")
	}
	if strings.TrimSpace(notes) == "" {
		return e, ErrReasonRequired
	}
	return e.transition(ApprovalRejected, e.status, byUserID, notes), nil
}

// Suspend pulls an approved element out of active use without closing it;
// the operational status drops back to draft.
func (e *WbsElement) Suspend(byUserID uuid.UUID, notes string) (*WbsElement, error) {
	if e.approvalStatus != ApprovalApproved {
		return e, ErrInvalidTransition.WithMessage("only an approved element can be suspended")
	}
	return e.transition(ApprovalSuspended, StatusDraft, byUserID, notes), nil
}

func (e *WbsElement) Close(byUserID uuid.UUID, notes string) (*WbsElement, error) {
	switch e.approvalStatus {
	case ApprovalApproved, ApprovalSuspended, ApprovalDraft:
		return e.transition(ApprovalClosed, StatusClosed, byUserID, notes), nil
	default:
		return e, ErrInvalidTransition.WithMessage("element cannot be closed from its current approval status")
	}
}

func (e *WbsElement) transition(to ApprovalStatus, status Status, byUserID uuid.UUID, notes string) *WbsElement {
	now := time.Now()
	out := *e
	out.history = append(e.history[:len(e.history):len(e.history)], HistoryRecord{
		ID:       uuid.New(),
		From:     e.approvalStatus,
		To:       to,
		ByUserID: byUserID,
		Notes:    notes,
		At:       now,
	})
	out.approvalStatus = to
	out.status = status
	if notes != "" {
		out.approvalNotes = notes
	}
	out.updatedAt = now
	return &out
}

type snapshot struct {
	ID             uuid.UUID      `json:"id"`
	TenantID       uuid.UUID      `json:"tenant_id"`
	ProjectID      uuid.UUID      `json:"project_id"`
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Status         Status         `json:"status"`
	ApproverUserID *uuid.UUID     `json:"approver_user_id,omitempty"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	ApprovalNotes  string         `json:"approval_notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (e *WbsElement) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		ID:             e.id,
		TenantID:       e.tenantID,
		ProjectID:      e.projectID,
		Code:           e.code,
		Name:           e.name,
		ApprovalStatus: e.approvalStatus,
		Status:         e.status,
		ApproverUserID: e.approverUserID,
		ApprovedAt:     e.approvedAt,
		ApprovalNotes:  e.approvalNotes,
		CreatedAt:      e.createdAt,
	})
}
