package wbselement

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
)

// Repository persists WBS elements with optimistic concurrency: Update
// carries the version the caller read, and a stale version fails with
// serrors.ErrConcurrentModification without touching the row. Create
// fails with ErrDuplicateCode when the code is taken within the
// element's (tenant, project).
type Repository interface {
	lifecycle.Store

	GetByID(ctx context.Context, id uuid.UUID) (*WbsElement, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*WbsElement, error)
	Create(ctx context.Context, e *WbsElement) error
	Update(ctx context.Context, e *WbsElement, expectedVersion int64) error
}
