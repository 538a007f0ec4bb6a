package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/projects/domain/entities/project"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type ProjectCreatedEvent struct {
	Project *project.Project
}

type ProjectService struct {
	repo      project.Repository
	publisher eventbus.EventBus
}

func NewProjectService(repo project.Repository, publisher eventbus.EventBus) *ProjectService {
	return &ProjectService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*project.Project, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *ProjectService) List(ctx context.Context) ([]*project.Project, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]*project.Project, error) {
		return s.repo.List(txCtx)
	})
}

func (s *ProjectService) Create(ctx context.Context, name string) (*project.Project, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	p := project.New(tenantID, name)
	if err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, p)
	}); err != nil {
		return nil, err
	}

	s.publisher.Publish(ProjectCreatedEvent{Project: p})
	return p, nil
}
