package group

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var ErrNotFound = serrors.ErrNotFound.WithMessage("group not found")

// Group is a set of users that can be named as the approver of
// assignment requests. Each tenant has exactly one group flagged as its
// system-administrator group; it is the fallback approver.
type Group struct {
	id            uuid.UUID
	tenantID      uuid.UUID
	name          string
	isSystemAdmin bool
	createdAt     time.Time
}

func New(tenantID uuid.UUID, name string) Group {
	return Group{
		id:        uuid.New(),
		tenantID:  tenantID,
		name:      strings.TrimSpace(name),
		createdAt: time.Now(),
	}
}

func NewSystemAdmin(tenantID uuid.UUID) Group {
	g := New(tenantID, "System Administrators")
	g.isSystemAdmin = true
	return g
}

func Hydrate(id, tenantID uuid.UUID, name string, isSystemAdmin bool, createdAt time.Time) Group {
	return Group{
		id:            id,
		tenantID:      tenantID,
		name:          strings.TrimSpace(name),
		isSystemAdmin: isSystemAdmin,
		createdAt:     createdAt,
	}
}

func (g Group) ID() uuid.UUID        { return g.id }
func (g Group) TenantID() uuid.UUID  { return g.tenantID }
func (g Group) Name() string         { return g.name }
func (g Group) IsSystemAdmin() bool  { return g.isSystemAdmin }
func (g Group) CreatedAt() time.Time { return g.createdAt }
func (g Group) IsZero() bool         { return g.id == uuid.Nil }

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Group, error)
	// GetSystemAdmin returns the tenant's system-administrator group.
	GetSystemAdmin(ctx context.Context) (Group, error)
	Create(ctx context.Context, g Group) (Group, error)
}
