// Package auditlog is the immutable append-only trail for privileged
// operations. Records are written once and never updated or deleted.
package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var ErrNotFound = serrors.ErrNotFound.WithMessage("audit log record not found")

const (
	ActionImpersonationStarted = "impersonation_started"
	ActionImpersonationEnded   = "impersonation_ended"
)

type AuditLog struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ActorUserID uuid.UUID
	Action      string
	EntityType  string
	EntityID    uuid.UUID
	Message     string
	IP          string
	UserAgent   string
	CreatedAt   time.Time
}

func New(tenantID, actorUserID uuid.UUID, action, entityType string, entityID uuid.UUID, message, ip, userAgent string) *AuditLog {
	return &AuditLog{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ActorUserID: actorUserID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Message:     message,
		IP:          ip,
		UserAgent:   userAgent,
		CreatedAt:   time.Now(),
	}
}

type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuditLog, error)
	ListByActor(ctx context.Context, actorUserID uuid.UUID) ([]*AuditLog, error)
}
