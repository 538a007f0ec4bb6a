package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crewplane/crewplane/modules/core/domain/entities/archive"
	"github.com/crewplane/crewplane/modules/core/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
)

const (
	archiveFindQuery = `
		SELECT id, tenant_id, entity_type, entity_id, status, snapshot, deleted_by, created_at
		FROM data_archives`
)

type ArchiveRepository struct{}

func NewArchiveRepository() archive.Repository {
	return &ArchiveRepository{}
}

func (r *ArchiveRepository) Create(ctx context.Context, a *archive.Archive) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO data_archives (id, tenant_id, entity_type, entity_id, status, snapshot, deleted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		a.ID.String(),
		a.TenantID.String(),
		a.EntityType,
		a.EntityID.String(),
		a.Status,
		a.Snapshot,
		a.DeletedBy.String(),
		a.CreatedAt,
	); err != nil {
		return errors.Wrap(translateDBError(err), "failed to archive entity")
	}

	return nil
}

func (r *ArchiveRepository) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (*archive.Archive, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	query := archiveFindQuery + " WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3"
	var m models.Archive
	if err := tx.QueryRow(ctx, query, tenantID.String(), entityType, entityID.String()).Scan(
		&m.ID,
		&m.TenantID,
		&m.EntityType,
		&m.EntityID,
		&m.Status,
		&m.Snapshot,
		&m.DeletedBy,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, archive.ErrNotFound
		}
		return nil, errors.Wrap(translateDBError(err), "failed to query archive")
	}

	return toDomainArchive(&m), nil
}

func (r *ArchiveRepository) ListByType(ctx context.Context, entityType string) ([]*archive.Archive, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	query := archiveFindQuery + " WHERE tenant_id = $1 AND entity_type = $2 ORDER BY created_at DESC"
	rows, err := tx.Query(ctx, query, tenantID.String(), entityType)
	if err != nil {
		return nil, errors.Wrap(translateDBError(err), "failed to list archives")
	}
	defer rows.Close()

	var out []*archive.Archive
	for rows.Next() {
		var m models.Archive
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.EntityType,
			&m.EntityID,
			&m.Status,
			&m.Snapshot,
			&m.DeletedBy,
			&m.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan archive row")
		}
		out = append(out, toDomainArchive(&m))
	}
	return out, rows.Err()
}
