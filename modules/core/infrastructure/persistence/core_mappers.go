package persistence

import (
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/aggregates/user"
	"github.com/crewplane/crewplane/modules/core/domain/entities/archive"
	"github.com/crewplane/crewplane/modules/core/domain/entities/group"
	"github.com/crewplane/crewplane/modules/core/domain/entities/tenant"
	"github.com/crewplane/crewplane/modules/core/infrastructure/persistence/models"
)

func toDomainTenant(t *models.Tenant) *tenant.Tenant {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		id = uuid.Nil
	}
	return tenant.New(
		t.Name,
		tenant.WithID(id),
		tenant.WithDomain(t.Domain.String),
		tenant.WithIsActive(t.IsActive),
		tenant.WithCreatedAt(t.CreatedAt),
		tenant.WithUpdatedAt(t.UpdatedAt),
	)
}

func toDomainUser(u *models.User) user.User {
	return user.Hydrate(
		mustParseUUID(u.ID),
		mustParseUUID(u.TenantID),
		u.Email,
		u.DisplayName,
		user.Status(u.Status),
		u.IsSystemAdmin,
		u.CreatedAt,
		u.UpdatedAt,
	)
}

func toDomainGroup(g *models.Group) group.Group {
	return group.Hydrate(
		mustParseUUID(g.ID),
		mustParseUUID(g.TenantID),
		g.Name,
		g.IsSystemAdmin,
		g.CreatedAt,
	)
}

func toDomainArchive(a *models.Archive) *archive.Archive {
	return &archive.Archive{
		ID:         mustParseUUID(a.ID),
		TenantID:   mustParseUUID(a.TenantID),
		EntityType: a.EntityType,
		EntityID:   mustParseUUID(a.EntityID),
		Status:     a.Status,
		Snapshot:   a.Snapshot,
		DeletedBy:  mustParseUUID(a.DeletedBy),
		CreatedAt:  a.CreatedAt,
	}
}

func mustParseUUID(v string) uuid.UUID {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil
	}
	return id
}
