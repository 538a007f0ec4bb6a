package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/auditlog"
	"github.com/crewplane/crewplane/pkg/composables"
)

type AuditLogService struct {
	repo auditlog.Repository
}

func NewAuditLogService(repo auditlog.Repository) *AuditLogService {
	return &AuditLogService{repo: repo}
}

func (s *AuditLogService) GetByID(ctx context.Context, id uuid.UUID) (*auditlog.AuditLog, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*auditlog.AuditLog, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *AuditLogService) ListByActor(ctx context.Context, actorUserID uuid.UUID) ([]*auditlog.AuditLog, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*auditlog.AuditLog, error) {
		return s.repo.ListByActor(txCtx, actorUserID)
	})
}
