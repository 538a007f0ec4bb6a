package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
)

// Repository is the tenant-scoped store for bookings. Create must fail
// with schedule.ErrConflictingInterval when the booking's interval
// overlaps an existing blocking booking for the same space; the check and
// the insert are one atomic unit.
type Repository interface {
	lifecycle.Store

	GetByID(ctx context.Context, id uuid.UUID) (Booking, error)
	// ListOverlapping returns the non-deleted blocking bookings for the
	// space whose intervals overlap span.
	ListOverlapping(ctx context.Context, spaceID uuid.UUID, span schedule.Interval) ([]Booking, error)
	ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]Booking, error)
	Create(ctx context.Context, b Booking) error
	// Update writes the booking only while the stored status still equals
	// expectedStatus. A stale caller gets
	// serrors.ErrConcurrentModification without touching the row.
	Update(ctx context.Context, b Booking, expectedStatus Status) error
}
