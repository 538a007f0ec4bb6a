package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/auditlog"
	"github.com/crewplane/crewplane/modules/superadmin/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
)

const auditLogFindQuery = `
	SELECT id, tenant_id, actor_user_id, action, entity_type, entity_id,
	       message, ip, user_agent, created_at
	FROM audit_logs`

type AuditLogRepository struct{}

func NewAuditLogRepository() auditlog.Repository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) Create(ctx context.Context, log *auditlog.AuditLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (
			id, tenant_id, actor_user_id, action, entity_type, entity_id,
			message, ip, user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		log.ID.String(),
		log.TenantID.String(),
		log.ActorUserID.String(),
		log.Action,
		log.EntityType,
		log.EntityID.String(),
		mapping.ValueToSQLNullString(log.Message),
		mapping.ValueToSQLNullString(log.IP),
		mapping.ValueToSQLNullString(log.UserAgent),
		log.CreatedAt,
	); err != nil {
		return errors.Wrap(translateSuperadminError(err), "failed to create audit log record")
	}
	return nil
}

func (r *AuditLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*auditlog.AuditLog, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	m, err := scanAuditLog(tx.QueryRow(ctx, auditLogFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auditlog.ErrNotFound
		}
		return nil, errors.Wrap(translateSuperadminError(err), "failed to query audit log record")
	}
	return toDomainAuditLog(m), nil
}

func (r *AuditLogRepository) ListByActor(ctx context.Context, actorUserID uuid.UUID) ([]*auditlog.AuditLog, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	query := auditLogFindQuery + " WHERE tenant_id = $1 AND actor_user_id = $2 ORDER BY created_at DESC"
	rows, err := tx.Query(ctx, query, tenantID.String(), actorUserID.String())
	if err != nil {
		return nil, errors.Wrap(translateSuperadminError(err), "failed to list audit log records")
	}
	defer rows.Close()

	var out []*auditlog.AuditLog
	for rows.Next() {
		m, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, toDomainAuditLog(m))
	}
	return out, rows.Err()
}

func scanAuditLog(row pgx.Row) (*models.AuditLog, error) {
	var m models.AuditLog
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.ActorUserID,
		&m.Action,
		&m.EntityType,
		&m.EntityID,
		&m.Message,
		&m.IP,
		&m.UserAgent,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
