package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crewplane/crewplane/modules/core/domain/entities/group"
	"github.com/crewplane/crewplane/modules/core/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
)

const (
	groupFindQuery = `SELECT id, tenant_id, name, is_system_admin, created_at FROM approver_groups`
)

type GroupRepository struct{}

func NewGroupRepository() group.Repository {
	return &GroupRepository{}
}

func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (group.Group, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return group.Group{}, err
	}

	return r.queryOne(ctx, groupFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
}

func (r *GroupRepository) GetSystemAdmin(ctx context.Context) (group.Group, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return group.Group{}, err
	}

	return r.queryOne(ctx, groupFindQuery+" WHERE tenant_id = $1 AND is_system_admin = true", tenantID.String())
}

func (r *GroupRepository) Create(ctx context.Context, g group.Group) (group.Group, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return group.Group{}, err
	}

	query := `
		INSERT INTO approver_groups (id, tenant_id, name, is_system_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		g.ID().String(),
		g.TenantID().String(),
		g.Name(),
		g.IsSystemAdmin(),
		g.CreatedAt(),
	); err != nil {
		return group.Group{}, errors.Wrap(translateDBError(err), "failed to create approver group")
	}

	return g, nil
}

func (r *GroupRepository) queryOne(ctx context.Context, query string, args ...interface{}) (group.Group, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "failed to get transaction")
	}

	var m models.Group
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.TenantID,
		&m.Name,
		&m.IsSystemAdmin,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(translateDBError(err), "failed to query approver group")
	}

	return toDomainGroup(&m), nil
}
