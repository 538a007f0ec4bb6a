// Package actionlog is the append-only journal of domain state changes.
// Entries are written by event handlers, never by the code that made the
// change, so a failed journal write cannot roll back the change itself.
package actionlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	ActionWbsTransitioned   = "wbs_transitioned"
	ActionRequestApproved   = "assignment_request_approved"
	ActionRequestRejected   = "assignment_request_rejected"
	ActionAssignmentCreated = "assignment_created"
	ActionAssignmentEnded   = "assignment_ended"
	ActionBookingReserved   = "booking_reserved"
	ActionBookingChanged    = "booking_status_changed"
	ActionSoftDeleted       = "soft_deleted"
	ActionRestored          = "restored"
	ActionHardDeleted       = "hard_deleted"
)

type ActionLog struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Detail     string
	CreatedAt  time.Time
}

func New(tenantID uuid.UUID, userID *uuid.UUID, action, entityType string, entityID uuid.UUID, detail string) *ActionLog {
	return &ActionLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
}

type FindParams struct {
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, log *ActionLog) error
	List(ctx context.Context, params *FindParams) ([]*ActionLog, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
