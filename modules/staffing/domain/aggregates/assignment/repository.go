package assignment

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
)

// Repository is the tenant-scoped assignment store. Create must fail with
// schedule.ErrConflictingInterval when the person already has an active
// assignment overlapping the interval; the check and the insert are one
// atomic unit.
type Repository interface {
	lifecycle.Store

	GetByID(ctx context.Context, id uuid.UUID) (Assignment, error)
	// ListOverlapping returns the non-deleted active assignments for the
	// person whose intervals overlap span.
	ListOverlapping(ctx context.Context, personID uuid.UUID, span schedule.Interval) ([]Assignment, error)
	ListByPerson(ctx context.Context, personID uuid.UUID) ([]Assignment, error)
	Create(ctx context.Context, a Assignment) error
	// Update writes the assignment only while the stored status still
	// equals expectedStatus. A stale caller gets
	// serrors.ErrConcurrentModification without touching the row.
	Update(ctx context.Context, a Assignment, expectedStatus Status) error
}
