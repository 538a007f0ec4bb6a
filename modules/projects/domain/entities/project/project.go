package project

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var ErrNotFound = serrors.ErrNotFound.WithMessage("project not found")

// Project owns its WBS elements one-directionally: elements carry the
// project id, the project holds no live references back.
type Project struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	name      string
	createdAt time.Time
	updatedAt time.Time
}

func New(tenantID uuid.UUID, name string) *Project {
	now := time.Now()
	return &Project{
		id:        uuid.New(),
		tenantID:  tenantID,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
}

func Hydrate(id, tenantID uuid.UUID, name string, createdAt, updatedAt time.Time) *Project {
	return &Project{
		id:        id,
		tenantID:  tenantID,
		name:      name,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (p *Project) ID() uuid.UUID        { return p.id }
func (p *Project) TenantID() uuid.UUID  { return p.tenantID }
func (p *Project) Name() string         { return p.name }
func (p *Project) CreatedAt() time.Time { return p.createdAt }
func (p *Project) UpdatedAt() time.Time { return p.updatedAt }

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	Create(ctx context.Context, p *Project) error
	List(ctx context.Context) ([]*Project, error)
}
