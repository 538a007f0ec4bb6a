package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/projects/domain/aggregates/wbselement"
	"github.com/crewplane/crewplane/modules/projects/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
	"github.com/crewplane/crewplane/pkg/serrors"
)

const (
	wbsFindQuery = `
		SELECT id, tenant_id, project_id, code, name, approval_status, status,
		       approver_user_id, approved_at, approval_notes, version,
		       is_deleted, deleted_at, deleted_by, deletion_reason, created_at, updated_at
		FROM wbs_elements`

	wbsHistoryQuery = `
		SELECT id, wbs_element_id, tenant_id, from_status, to_status, by_user_id, notes, created_at
		FROM wbs_status_history
		WHERE tenant_id = $1 AND wbs_element_id = $2
		ORDER BY created_at`
)

type WbsElementRepository struct{}

func NewWbsElementRepository() wbselement.Repository {
	return &WbsElementRepository{}
}

func (r *WbsElementRepository) GetByID(ctx context.Context, id uuid.UUID) (*wbselement.WbsElement, error) {
	return r.getByID(ctx, id, false)
}

func (r *WbsElementRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*wbselement.WbsElement, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := wbsFindQuery + " WHERE tenant_id = $1 AND project_id = $2 AND NOT is_deleted ORDER BY code"
	return r.queryElements(ctx, query, tenantID.String(), projectID.String())
}

func (r *WbsElementRepository) Create(ctx context.Context, e *wbselement.WbsElement) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO wbs_elements (
			id, tenant_id, project_id, code, name, approval_status, status,
			approver_user_id, approved_at, approval_notes, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		e.ID().String(),
		e.TenantID().String(),
		e.ProjectID().String(),
		e.Code(),
		e.Name(),
		string(e.ApprovalStatus()),
		string(e.Status()),
		approverToNullString(e.ApproverUserID()),
		mapping.PointerToSQLNullTime(e.ApprovedAt()),
		mapping.ValueToSQLNullString(e.ApprovalNotes()),
		e.Version(),
		e.CreatedAt(),
		e.UpdatedAt(),
	); err != nil {
		return errors.Wrap(translateProjectsError(err), "failed to create wbs element")
	}
	return nil
}

// Update is the optimistic write: the row only changes when the stored
// version still equals expectedVersion, and the version advances in the
// same statement. A stale caller gets ConcurrentModification, never a
// silent overwrite.
func (r *WbsElementRepository) Update(ctx context.Context, e *wbselement.WbsElement, expectedVersion int64) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE wbs_elements
		SET approval_status = $1, status = $2, approver_user_id = $3, approved_at = $4,
		    approval_notes = $5, name = $6, version = version + 1, updated_at = $7
		WHERE tenant_id = $8 AND id = $9 AND version = $10 AND NOT is_deleted
	`
	tag, err := tx.Exec(
		ctx,
		query,
		string(e.ApprovalStatus()),
		string(e.Status()),
		approverToNullString(e.ApproverUserID()),
		mapping.PointerToSQLNullTime(e.ApprovedAt()),
		mapping.ValueToSQLNullString(e.ApprovalNotes()),
		e.Name(),
		e.UpdatedAt(),
		tenantID.String(),
		e.ID().String(),
		expectedVersion,
	)
	if err != nil {
		return errors.Wrap(translateProjectsError(err), "failed to update wbs element")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.getByID(ctx, e.ID(), false); err != nil {
			return err
		}
		return serrors.ErrConcurrentModification
	}

	return r.insertHistory(ctx, e)
}

func (r *WbsElementRepository) GetResource(ctx context.Context, id uuid.UUID, includeDeleted bool) (lifecycle.Resource, error) {
	e, err := r.getByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *WbsElementRepository) SetDeletion(ctx context.Context, id uuid.UUID, state lifecycle.State) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE wbs_elements
		SET is_deleted = $1, deleted_at = $2, deleted_by = $3, deletion_reason = $4
		WHERE tenant_id = $5 AND id = $6
	`
	tag, err := tx.Exec(
		ctx,
		query,
		state.IsDeleted(),
		mapping.PointerToSQLNullTime(state.DeletedAt()),
		mapping.UUIDToNullString(state.DeletedByUserID()),
		mapping.ValueToSQLNullString(state.Reason()),
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return errors.Wrap(translateProjectsError(err), "failed to set wbs element deletion state")
	}
	if tag.RowsAffected() == 0 {
		return wbselement.ErrNotFound
	}
	return nil
}

func (r *WbsElementRepository) Purge(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, "DELETE FROM wbs_elements WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
	if err != nil {
		return errors.Wrap(translateProjectsError(err), "failed to purge wbs element")
	}
	if tag.RowsAffected() == 0 {
		return wbselement.ErrNotFound
	}
	return nil
}

func (r *WbsElementRepository) getByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*wbselement.WbsElement, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := wbsFindQuery + " WHERE tenant_id = $1 AND id = $2"
	if !includeDeleted {
		query += " AND NOT is_deleted"
	}

	elements, err := r.queryElements(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, wbselement.ErrNotFound
	}
	return elements[0], nil
}

func (r *WbsElementRepository) queryElements(ctx context.Context, query string, args ...interface{}) ([]*wbselement.WbsElement, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(translateProjectsError(err), "failed to query wbs elements")
	}
	defer rows.Close()

	var ms []*models.WbsElement
	for rows.Next() {
		var m models.WbsElement
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.ProjectID,
			&m.Code,
			&m.Name,
			&m.ApprovalStatus,
			&m.Status,
			&m.ApproverUserID,
			&m.ApprovedAt,
			&m.ApprovalNotes,
			&m.Version,
			&m.IsDeleted,
			&m.DeletedAt,
			&m.DeletedBy,
			&m.DeletionReason,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan wbs element row")
		}
		ms = append(ms, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	out := make([]*wbselement.WbsElement, 0, len(ms))
	for _, m := range ms {
		history, err := r.queryHistory(ctx, m.TenantID, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, toDomainWbsElement(m, history))
	}
	return out, nil
}

func (r *WbsElementRepository) queryHistory(ctx context.Context, tenantID, elementID string) ([]wbselement.HistoryRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, wbsHistoryQuery, tenantID, elementID)
	if err != nil {
		return nil, errors.Wrap(translateProjectsError(err), "failed to query wbs status history")
	}
	defer rows.Close()

	var out []wbselement.HistoryRecord
	for rows.Next() {
		var m models.WbsStatusHistory
		if err := rows.Scan(&m.ID, &m.WbsElementID, &m.TenantID, &m.FromStatus, &m.ToStatus, &m.ByUserID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan wbs history row")
		}
		out = append(out, toDomainHistory(&m))
	}
	return out, rows.Err()
}

// insertHistory appends trail records produced by the latest transition.
// History rows are append-only; already persisted ids are skipped.
func (r *WbsElementRepository) insertHistory(ctx context.Context, e *wbselement.WbsElement) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO wbs_status_history (id, wbs_element_id, tenant_id, from_status, to_status, by_user_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	for _, h := range e.History() {
		if _, err := tx.Exec(
			ctx,
			query,
			h.ID.String(),
			e.ID().String(),
			e.TenantID().String(),
			string(h.From),
			string(h.To),
			h.ByUserID.String(),
			mapping.ValueToSQLNullString(h.Notes),
			h.At,
		); err != nil {
			return errors.Wrap(translateProjectsError(err), "failed to append wbs status history")
		}
	}
	return nil
}

func approverToNullString(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

// translateProjectsError maps unique violations onto the duplicate-code
// error; the only unique constraint on wbs_elements is (tenant, project,
// code).
func translateProjectsError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return wbselement.ErrDuplicateCode
	}
	return serrors.MapContext(err)
}
