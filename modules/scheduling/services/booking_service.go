package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/scheduling/domain/aggregates/booking"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type BookingReservedEvent struct {
	Booking booking.Booking
}

type BookingStatusChangedEvent struct {
	Booking booking.Booking
	Event   booking.EventType
}

type BookingService struct {
	repo      booking.Repository
	publisher eventbus.EventBus
}

func NewBookingService(repo booking.Repository, publisher eventbus.EventBus) *BookingService {
	return &BookingService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *BookingService) GetByID(ctx context.Context, id uuid.UUID) (booking.Booking, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (booking.Booking, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *BookingService) ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]booking.Booking, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]booking.Booking, error) {
		return s.repo.ListBySpace(txCtx, spaceID)
	})
}

// Reserve creates a booking for the space over [start, end). The overlap
// pre-check runs in the same transaction as the insert; the store's
// exclusion constraint closes the race between concurrent reservations.
func (s *BookingService) Reserve(ctx context.Context, spaceID uuid.UUID, start, end time.Time) (booking.Booking, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return booking.Booking{}, err
	}

	interval, err := schedule.NewInterval(start, end)
	if err != nil {
		return booking.Booking{}, err
	}

	b := booking.New(tenantID, spaceID, identity.UserID, interval)
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListOverlapping(txCtx, spaceID, interval)
		if err != nil {
			return err
		}
		if schedule.HasConflict(asEntries(existing), spaceID, interval, uuid.Nil) {
			return schedule.ErrConflictingInterval
		}
		return s.repo.Create(txCtx, b)
	})
	if err != nil {
		return booking.Booking{}, err
	}

	s.publisher.Publish(BookingReservedEvent{Booking: b})
	return b, nil
}

func (s *BookingService) CheckIn(ctx context.Context, id uuid.UUID) (booking.Booking, error) {
	return s.applyTransition(ctx, id, booking.EventCheckIn, booking.Booking.CheckIn)
}

func (s *BookingService) CheckOut(ctx context.Context, id uuid.UUID) (booking.Booking, error) {
	return s.applyTransition(ctx, id, booking.EventCheckOut, booking.Booking.CheckOut)
}

func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) (booking.Booking, error) {
	return s.applyTransition(ctx, id, booking.EventCancelled, booking.Booking.Cancel)
}

func (s *BookingService) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	event booking.EventType,
	fn func(booking.Booking, uuid.UUID) (booking.Booking, error),
) (booking.Booking, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return booking.Booking{}, err
	}

	var updated booking.Booking
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		from := current.Status()
		updated, err = fn(current, identity.UserID)
		if err != nil {
			return err
		}
		return s.repo.Update(txCtx, updated, from)
	})
	if err != nil {
		return booking.Booking{}, err
	}

	s.publisher.Publish(BookingStatusChangedEvent{Booking: updated, Event: event})
	return updated, nil
}

func asEntries(bookings []booking.Booking) []schedule.Entry {
	entries := make([]schedule.Entry, len(bookings))
	for i, b := range bookings {
		entries[i] = b
	}
	return entries
}
