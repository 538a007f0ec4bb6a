package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/entities/group"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type GroupService struct {
	repo      group.Repository
	publisher eventbus.EventBus
}

func NewGroupService(repo group.Repository, publisher eventbus.EventBus) *GroupService {
	return &GroupService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *GroupService) GetByID(ctx context.Context, id uuid.UUID) (group.Group, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (group.Group, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *GroupService) GetSystemAdmin(ctx context.Context) (group.Group, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (group.Group, error) {
		return s.repo.GetSystemAdmin(txCtx)
	})
}

func (s *GroupService) Create(ctx context.Context, g group.Group) (group.Group, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (group.Group, error) {
		return s.repo.Create(txCtx, g)
	})
}
