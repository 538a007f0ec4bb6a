package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/aggregates/user"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type UserService struct {
	repo      user.Repository
	publisher eventbus.EventBus
}

func NewUserService(repo user.Repository, publisher eventbus.EventBus) *UserService {
	return &UserService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		return s.repo.GetByEmail(txCtx, email)
	})
}

func (s *UserService) Create(ctx context.Context, u user.User) (user.User, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		return s.repo.Create(txCtx, u)
	})
}

func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) (user.User, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (user.User, error) {
		u, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return user.User{}, err
		}
		u = u.Deactivated()
		if err := s.repo.Update(txCtx, u); err != nil {
			return user.User{}, err
		}
		return u, nil
	})
}
