package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/logging/domain/entities/actionlog"
	"github.com/crewplane/crewplane/modules/logging/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
	"github.com/crewplane/crewplane/pkg/serrors"
)

const actionLogFindQuery = `
	SELECT id, tenant_id, user_id, action, entity_type, entity_id, detail, created_at
	FROM action_logs`

type ActionLogRepository struct{}

func NewActionLogRepository() actionlog.Repository {
	return &ActionLogRepository{}
}

func (r *ActionLogRepository) Create(ctx context.Context, log *actionlog.ActionLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO action_logs (id, tenant_id, user_id, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		log.ID.String(),
		log.TenantID.String(),
		userIDToArg(log.UserID),
		log.Action,
		log.EntityType,
		log.EntityID.String(),
		mapping.ValueToSQLNullString(log.Detail),
		log.CreatedAt,
	); err != nil {
		return errors.Wrap(serrors.MapContext(err), "failed to create action log")
	}
	return nil
}

func (r *ActionLogRepository) List(ctx context.Context, params *actionlog.FindParams) ([]*actionlog.ActionLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	where, args, err := buildFilters(ctx, params)
	if err != nil {
		return nil, err
	}

	query := actionLogFindQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
	}
	if params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(serrors.MapContext(err), "failed to list action logs")
	}
	defer rows.Close()

	var out []*actionlog.ActionLog
	for rows.Next() {
		var m models.ActionLog
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.UserID,
			&m.Action,
			&m.EntityType,
			&m.EntityID,
			&m.Detail,
			&m.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan action log row")
		}
		out = append(out, toDomainActionLog(&m))
	}
	return out, rows.Err()
}

func (r *ActionLogRepository) Count(ctx context.Context, params *actionlog.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}

	where, args, err := buildFilters(ctx, params)
	if err != nil {
		return 0, err
	}

	var count int64
	query := "SELECT COUNT(*) FROM action_logs WHERE " + strings.Join(where, " AND ")
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(serrors.MapContext(err), "failed to count action logs")
	}
	return count, nil
}

func buildFilters(ctx context.Context, params *actionlog.FindParams) ([]string, []interface{}, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, nil, err
	}

	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID.String()}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if params.Action != "" {
		add("action = $%d", params.Action)
	}
	if params.EntityType != "" {
		add("entity_type = $%d", params.EntityType)
	}
	if params.EntityID != nil {
		add("entity_id = $%d", params.EntityID.String())
	}
	if params.From != nil {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil {
		add("created_at <= $%d", *params.To)
	}
	return where, args, nil
}

func toDomainActionLog(m *models.ActionLog) *actionlog.ActionLog {
	var userID *uuid.UUID
	if m.UserID.Valid {
		if id, err := uuid.Parse(m.UserID.String); err == nil {
			userID = &id
		}
	}
	id, _ := uuid.Parse(m.ID)
	tenantID, _ := uuid.Parse(m.TenantID)
	entityID, _ := uuid.Parse(m.EntityID)
	return &actionlog.ActionLog{
		ID:         id,
		TenantID:   tenantID,
		UserID:     userID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   entityID,
		Detail:     m.Detail.String,
		CreatedAt:  m.CreatedAt,
	}
}

func userIDToArg(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}
