package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/aggregates/booking"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/scheduling/infrastructure/persistence/models"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/mapping"
	"github.com/crewplane/crewplane/pkg/serrors"
)

const (
	bookingFindQuery = `
		SELECT id, tenant_id, space_id, booked_by, starts_at, ends_at, status,
		       is_deleted, deleted_at, deleted_by, deletion_reason, created_at, updated_at
		FROM bookings`

	bookingEventsQuery = `
		SELECT id, booking_id, tenant_id, event_type, by_user_id, occurred_at
		FROM booking_events
		WHERE tenant_id = $1 AND booking_id = $2
		ORDER BY occurred_at`
)

type BookingRepository struct{}

func NewBookingRepository() booking.Repository {
	return &BookingRepository{}
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (booking.Booking, error) {
	return r.getByID(ctx, id, false)
}

func (r *BookingRepository) ListOverlapping(ctx context.Context, spaceID uuid.UUID, span schedule.Interval) ([]booking.Booking, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := bookingFindQuery + `
		WHERE tenant_id = $1 AND space_id = $2 AND NOT is_deleted
		  AND status IN ('reserved', 'checked_in')
		  AND starts_at < $4 AND ends_at > $3`
	return r.queryBookings(ctx, query, tenantID.String(), spaceID.String(), span.Start(), span.End())
}

func (r *BookingRepository) ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]booking.Booking, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := bookingFindQuery + " WHERE tenant_id = $1 AND space_id = $2 AND NOT is_deleted ORDER BY starts_at"
	return r.queryBookings(ctx, query, tenantID.String(), spaceID.String())
}

// Create inserts the booking row. The bookings_no_overlap exclusion
// constraint is the authoritative race closure: a concurrent insert for an
// overlapping blocking interval fails with 23P01, surfaced as
// schedule.ErrConflictingInterval.
func (r *BookingRepository) Create(ctx context.Context, b booking.Booking) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (id, tenant_id, space_id, booked_by, starts_at, ends_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		b.ID().String(),
		b.TenantID().String(),
		b.SpaceID().String(),
		b.BookedBy().String(),
		b.Interval().Start(),
		b.Interval().End(),
		string(b.Status()),
		b.CreatedAt(),
		b.UpdatedAt(),
	); err != nil {
		return errors.Wrap(translateSchedulingError(err), "failed to create booking")
	}

	return r.insertEvents(ctx, b)
}

// Update guards on the status the caller read. Zero affected rows means
// either the booking is gone or another transition won the race; a
// re-fetch tells the two apart so a stale caller gets
// serrors.ErrConcurrentModification, never a silent overwrite.
func (r *BookingRepository) Update(ctx context.Context, b booking.Booking, expectedStatus booking.Status) error {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE bookings
		SET status = $1, starts_at = $2, ends_at = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6 AND status = $7 AND NOT is_deleted
	`
	tag, err := tx.Exec(
		ctx,
		query,
		string(b.Status()),
		b.Interval().Start(),
		b.Interval().End(),
		b.UpdatedAt(),
		tenantID.String(),
		b.ID().String(),
		string(expectedStatus),
	)
	if err != nil {
		return errors.Wrap(translateSchedulingError(err), "failed to update booking")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.getByID(ctx, b.ID(), false); err != nil {
			return err
		}
		return serrors.ErrConcurrentModification
	}

	return r.insertEvents(ctx, b)
}

func (r *BookingRepository) GetResource(ctx context.Context, id uuid.UUID, includeDeleted bool) (lifecycle.Resource, error) {
	b, err := r.getByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BookingRepository) SetDeletion(ctx context.Context, id uuid.UUID, state lifecycle.State) error {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE bookings
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
		return errors.Wrap(translateSchedulingError(err), "failed to set booking deletion state")
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) Purge(ctx context.Context, id uuid.UUID) error {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, "DELETE FROM bookings WHERE tenant_id = $1 AND id = $2", tenantID.String(), id.String())
	if err != nil {
		return errors.Wrap(translateSchedulingError(err), "failed to purge booking")
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) getByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (booking.Booking, error) {
	tenantID, err := useTenantID(ctx)
	if err != nil {
		return booking.Booking{}, err
	}

	query := bookingFindQuery + " WHERE tenant_id = $1 AND id = $2"
	if !includeDeleted {
		query += " AND NOT is_deleted"
	}

	bookings, err := r.queryBookings(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return booking.Booking{}, err
	}
	if len(bookings) == 0 {
		return booking.Booking{}, booking.ErrNotFound
	}
	return bookings[0], nil
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]booking.Booking, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(translateSchedulingError(err), "failed to query bookings")
	}
	defer rows.Close()

	var ms []*models.Booking
	for rows.Next() {
		var m models.Booking
		if err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.SpaceID,
			&m.BookedBy,
			&m.StartsAt,
			&m.EndsAt,
			&m.Status,
			&m.IsDeleted,
			&m.DeletedAt,
			&m.DeletedBy,
			&m.DeletionReason,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan booking row")
		}
		ms = append(ms, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	out := make([]booking.Booking, 0, len(ms))
	for _, m := range ms {
		events, err := r.queryEvents(ctx, m.TenantID, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, toDomainBooking(m, events))
	}
	return out, nil
}

func (r *BookingRepository) queryEvents(ctx context.Context, tenantID, bookingID string) ([]booking.EventRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, bookingEventsQuery, tenantID, bookingID)
	if err != nil {
		return nil, errors.Wrap(translateSchedulingError(err), "failed to query booking events")
	}
	defer rows.Close()

	var out []booking.EventRecord
	for rows.Next() {
		var m models.BookingEvent
		if err := rows.Scan(&m.ID, &m.BookingID, &m.TenantID, &m.EventType, &m.ByUserID, &m.OccurredAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan booking event row")
		}
		out = append(out, toDomainBookingEvent(&m))
	}
	return out, rows.Err()
}

// insertEvents appends any history records not yet persisted. Event rows
// are append-only; existing ids are left untouched.
func (r *BookingRepository) insertEvents(ctx context.Context, b booking.Booking) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO booking_events (id, booking_id, tenant_id, event_type, by_user_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	for _, ev := range b.Events() {
		if _, err := tx.Exec(
			ctx,
			query,
			ev.ID.String(),
			b.ID().String(),
			b.TenantID().String(),
			string(ev.Type),
			ev.ByUserID.String(),
			ev.At,
		); err != nil {
			return errors.Wrap(translateSchedulingError(err), "failed to append booking event")
		}
	}
	return nil
}

func useTenantID(ctx context.Context) (uuid.UUID, error) {
	return composables.UseTenantID(ctx)
}

// translateSchedulingError maps store-level failures onto domain errors:
// the exclusion constraint violation means the interval is taken.
func translateSchedulingError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return schedule.ErrConflictingInterval
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.ErrNotFound
	}
	return serrors.MapContext(err)
}
