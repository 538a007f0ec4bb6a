package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/staffing/domain/aggregates/assignmentrequest"
	"github.com/crewplane/crewplane/modules/staffing/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
)

const requestFindQuery = `
	SELECT id, tenant_id, requested_by, requested_for, project_id, wbs_element_id,
	       approver_group_id, start_date, end_date, allocation_pct, notes, status,
	       resolved_at, resolved_by, assignment_id, created_at, updated_at
	FROM assignment_requests`

type AssignmentRequestRepository struct{}

func NewAssignmentRequestRepository() assignmentrequest.Repository {
	return &AssignmentRequestRepository{}
}

func (r *AssignmentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (assignmentrequest.AssignmentRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}

	requests, err := r.queryRequests(ctx, requestFindQuery+" WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
	if err != nil {
		return assignmentrequest.AssignmentRequest{}, err
	}
	if len(requests) == 0 {
		return assignmentrequest.AssignmentRequest{}, assignmentrequest.ErrNotFound
	}
	return requests[0], nil
}

func (r *AssignmentRequestRepository) ListPending(ctx context.Context) ([]assignmentrequest.AssignmentRequest, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := requestFindQuery + " WHERE tenant_id = $1 AND status = 'pending' ORDER BY created_at"
	return r.queryRequests(ctx, query, tenantID.String())
}

func (r *AssignmentRequestRepository) Create(ctx context.Context, req assignmentrequest.AssignmentRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assignment_requests (
			id, tenant_id, requested_by, requested_for, project_id, wbs_element_id,
			approver_group_id, start_date, end_date, allocation_pct, notes, status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		req.ID().String(),
		req.TenantID().String(),
		req.RequestedBy().String(),
		req.RequestedFor().String(),
		req.ProjectID().String(),
		uuidPtrToArg(req.WbsElementID()),
		req.ApproverGroupID().String(),
		req.StartDate(),
		req.EndDate(),
		req.AllocationPct(),
		mapping.ValueToSQLNullString(req.Notes()),
		string(req.Status()),
		req.CreatedAt(),
		req.UpdatedAt(),
	); err != nil {
		return errors.Wrap(translateStaffingError(err), "failed to create assignment request")
	}
	return nil
}

// Resolve writes the terminal state only while the stored row is still
// pending. A request resolved by a concurrent caller leaves zero rows
// affected and surfaces ErrAlreadyResolved, never a silent overwrite.
func (r *AssignmentRequestRepository) Resolve(ctx context.Context, req assignmentrequest.AssignmentRequest) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE assignment_requests
		SET status = $1, notes = $2, resolved_at = $3, resolved_by = $4, assignment_id = $5, updated_at = $6
		WHERE tenant_id = $7 AND id = $8 AND status = 'pending'
	`
	tag, err := tx.Exec(
		ctx,
		query,
		string(req.Status()),
		mapping.ValueToSQLNullString(req.Notes()),
		mapping.PointerToSQLNullTime(req.ResolvedAt()),
		uuidPtrToArg(req.ResolvedBy()),
		uuidPtrToArg(req.AssignmentID()),
		req.UpdatedAt(),
		tenantID.String(),
		req.ID().String(),
	)
	if err != nil {
		return errors.Wrap(translateStaffingError(err), "failed to resolve assignment request")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, req.ID()); err != nil {
			return err
		}
		return assignmentrequest.ErrAlreadyResolved
	}
	return nil
}

func (r *AssignmentRequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]assignmentrequest.AssignmentRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(translateStaffingError(err), "failed to query assignment requests")
	}
	defer rows.Close()

	var out []assignmentrequest.AssignmentRequest
	for rows.Next() {
		var m models.AssignmentRequest
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.RequestedBy,
			&m.RequestedFor,
			&m.ProjectID,
			&m.WbsElementID,
			&m.ApproverGroupID,
			&m.StartDate,
			&m.EndDate,
			&m.AllocationPct,
			&m.Notes,
			&m.Status,
			&m.ResolvedAt,
			&m.ResolvedBy,
			&m.AssignmentID,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan assignment request row")
		}
		out = append(out, toDomainRequest(&m))
	}
	return out, rows.Err()
}
