package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/entities/tenant"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type TenantService struct {
	repo      tenant.Repository
	publisher eventbus.EventBus
}

func NewTenantService(repo tenant.Repository, publisher eventbus.EventBus) *TenantService {
	return &TenantService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		return s.repo.GetByDomain(txCtx, domain)
	})
}

func (s *TenantService) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		return s.repo.Create(txCtx, t)
	})
}
