package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignment"
	"github.com/crewplane/crewplane/modules/staffing/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
	"github.com/crewplane/crewplane/pkg/serrors"
)

const assignmentFindQuery = `
	SELECT id, tenant_id, person_id, project_id, wbs_element_id, starts_at, ends_at,
	       allocation_pct, status, is_deleted, deleted_at, deleted_by, deletion_reason,
	       created_at, updated_at
	FROM assignments`

type AssignmentRepository struct{}

func NewAssignmentRepository() assignment.Repository {
	return &AssignmentRepository{}
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (assignment.Assignment, error) {
	return r.getByID(ctx, id, false)
}

func (r *AssignmentRepository) ListOverlapping(ctx context.Context, personID uuid.UUID, span schedule.Interval) ([]assignment.Assignment, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := assignmentFindQuery + `
		WHERE tenant_id = $1 AND person_id = $2 AND NOT is_deleted
		  AND status = 'active'
		  AND starts_at < $4 AND ends_at > $3`
	return r.queryAssignments(ctx, query, tenantID.String(), personID.String(), span.Start(), span.End())
}

func (r *AssignmentRepository) ListByPerson(ctx context.Context, personID uuid.UUID) ([]assignment.Assignment, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := assignmentFindQuery + " WHERE tenant_id = $1 AND person_id = $2 AND NOT is_deleted ORDER BY starts_at"
	return r.queryAssignments(ctx, query, tenantID.String(), personID.String())
}

// Create inserts the assignment row. The assignments_no_overlap exclusion
// constraint closes the race between concurrent inserts for the same
// person; 23P01 surfaces as schedule.ErrConflictingInterval.
func (r *AssignmentRepository) Create(ctx context.Context, a assignment.Assignment) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assignments (
			id, tenant_id, person_id, project_id, wbs_element_id,
			starts_at, ends_at, allocation_pct, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		a.ID().String(),
		a.TenantID().String(),
		a.PersonID().String(),
		a.ProjectID().String(),
		uuidPtrToArg(a.WbsElementID()),
		a.Interval().Start(),
		a.Interval().End(),
		a.AllocationPct(),
		string(a.Status()),
		a.CreatedAt(),
		a.UpdatedAt(),
	); err != nil {
		return errors.Wrap(translateStaffingError(err), "failed to create assignment")
	}
	return nil
}

// Update guards on the status the caller read. Zero affected rows means
// either the assignment is gone or another transition won the race; a
// re-fetch tells the two apart so a stale caller gets
// serrors.ErrConcurrentModification, never a silent overwrite.
func (r *AssignmentRepository) Update(ctx context.Context, a assignment.Assignment, expectedStatus assignment.Status) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE assignments
		SET status = $1, allocation_pct = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5 AND status = $6 AND NOT is_deleted
	`
	tag, err := tx.Exec(
		ctx,
		query,
		string(a.Status()),
		a.AllocationPct(),
		a.UpdatedAt(),
		tenantID.String(),
		a.ID().String(),
		string(expectedStatus),
	)
	if err != nil {
		return errors.Wrap(translateStaffingError(err), "failed to update assignment")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.getByID(ctx, a.ID(), false); err != nil {
			return err
		}
		return serrors.ErrConcurrentModification
	}
	return nil
}

func (r *AssignmentRepository) GetResource(ctx context.Context, id uuid.UUID, includeDeleted bool) (lifecycle.Resource, error) {
	a, err := r.getByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AssignmentRepository) SetDeletion(ctx context.Context, id uuid.UUID, state lifecycle.State) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE assignments
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
		return errors.Wrap(translateStaffingError(err), "failed to set assignment deletion state")
	}
	if tag.RowsAffected() == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (r *AssignmentRepository) Purge(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, "DELETE FROM assignments WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
	if err != nil {
		return errors.Wrap(translateStaffingError(err), "failed to purge assignment")
	}
	if tag.RowsAffected() == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (r *AssignmentRepository) getByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (assignment.Assignment, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return assignment.Assignment{}, err
	}

	query := assignmentFindQuery + " WHERE tenant_id = $1 AND id = $2"
	if !includeDeleted {
		query += " AND NOT is_deleted"
	}

	assignments, err := r.queryAssignments(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return assignment.Assignment{}, err
	}
	if len(assignments) == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return assignments[0], nil
}

func (r *AssignmentRepository) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]assignment.Assignment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(translateStaffingError(err), "failed to query assignments")
	}
	defer rows.Close()

	var out []assignment.Assignment
	for rows.Next() {
		var m models.Assignment
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.PersonID,
			&m.ProjectID,
			&m.WbsElementID,
			&m.StartsAt,
			&m.EndsAt,
			&m.AllocationPct,
			&m.Status,
			&m.IsDeleted,
			&m.DeletedAt,
			&m.DeletedBy,
			&m.DeletionReason,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan assignment row")
		}
		out = append(out, toDomainAssignment(&m))
	}
	return out, rows.Err()
}

func translateStaffingError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return schedule.ErrConflictingInterval
	}
	return serrors.MapContext(err)
}
