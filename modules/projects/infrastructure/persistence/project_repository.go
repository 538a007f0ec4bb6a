package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crewplane/crewplane/modules/projects/domain/entities/project"
	"github.com/crewplane/crewplane/modules/projects/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
)

const projectFindQuery = `SELECT id, tenant_id, name, created_at, updated_at FROM projects`

type ProjectRepository struct{}

func NewProjectRepository() project.Repository {
	return &ProjectRepository{}
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var m models.Project
	query := projectFindQuery + " WHERE tenant_id = $1 AND id = $2"
	if err := tx.QueryRow(ctx, query, tenantID.String(), id.String()).Scan(
		&m.ID,
		&m.TenantID,
		&m.Name,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, project.ErrNotFound
		}
		return nil, errors.Wrap(translateProjectsError(err), "failed to query project")
	}
	return toDomainProject(&m), nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		p.ID().String(),
		p.TenantID().String(),
		p.Name(),
		p.CreatedAt(),
		p.UpdatedAt(),
	); err != nil {
		return errors.Wrap(translateProjectsError(err), "failed to create project")
	}
	return nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]*project.Project, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, projectFindQuery+" WHERE tenant_id = $1 ORDER BY created_at", tenantID.String())
	if err != nil {
		return nil, errors.Wrap(translateProjectsError(err), "failed to list projects")
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		var m models.Project
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan project row")
		}
		out = append(out, toDomainProject(&m))
	}
	return out, rows.Err()
}
