package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/aggregates/booking"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/scheduling/services"
	"github.com/crewplane/crewplane/pkg/eventbus"
	"github.com/crewplane/crewplane/pkg/itf"
	"github.com/crewplane/crewplane/pkg/logging"
	"github.com/crewplane/crewplane/pkg/serrors"
)

// memBookingRepo mirrors the store's atomicity contract: the overlap check
// and the insert happen under one lock, the way the exclusion constraint
// closes the race in Postgres.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]booking.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]booking.Booking)}
}

func (r *memBookingRepo) GetByID(_ context.Context, id uuid.UUID) (booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Deletion().IsDeleted() {
		return booking.Booking{}, booking.ErrNotFound
	}
	return b, nil
}

func (r *memBookingRepo) ListOverlapping(_ context.Context, spaceID uuid.UUID, span schedule.Interval) ([]booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlappingLocked(spaceID, span), nil
}

func (r *memBookingRepo) ListBySpace(_ context.Context, spaceID uuid.UUID) ([]booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []booking.Booking
	for _, b := range r.bookings {
		if b.SpaceID() == spaceID && !b.Deletion().IsDeleted() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) Create(_ context.Context, b booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.overlappingLocked(b.SpaceID(), b.Interval())
	for _, e := range existing {
		if e.ID() != b.ID() {
			return schedule.ErrConflictingInterval
		}
	}
	r.bookings[b.ID()] = b
	return nil
}

func (r *memBookingRepo) Update(_ context.Context, b booking.Booking, expectedStatus booking.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID()]
	if !ok || stored.Deletion().IsDeleted() {
		return booking.ErrNotFound
	}
	if stored.Status() != expectedStatus {
		return serrors.ErrConcurrentModification
	}
	r.bookings[b.ID()] = b
	return nil
}

func (r *memBookingRepo) GetResource(_ context.Context, id uuid.UUID, includeDeleted bool) (lifecycle.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	if b.Deletion().IsDeleted() && !includeDeleted {
		return nil, booking.ErrNotFound
	}
	return b, nil
}

func (r *memBookingRepo) SetDeletion(_ context.Context, id uuid.UUID, state lifecycle.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	r.bookings[id] = booking.Hydrate(
		b.ID(), b.TenantID(), b.SpaceID(), b.BookedBy(),
		b.Interval(), b.Status(), b.Events(), state,
		b.CreatedAt(), b.UpdatedAt(),
	)
	return nil
}

func (r *memBookingRepo) Purge(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return booking.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *memBookingRepo) overlappingLocked(spaceID uuid.UUID, span schedule.Interval) []booking.Booking {
	var out []booking.Booking
	for _, b := range r.bookings {
		if b.SpaceID() == spaceID && b.Blocking() && b.Interval().Overlaps(span) {
			out = append(out, b)
		}
	}
	return out
}

func newBookingFixture(t *testing.T) (*services.BookingService, *memBookingRepo, context.Context) {
	t.Helper()
	repo := newMemBookingRepo()
	bus := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))
	svc := services.NewBookingService(repo, bus)
	return svc, repo, itf.Context(uuid.New(), uuid.New())
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

func TestBookingService_Reserve(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)
	space := uuid.New()

	b, err := svc.Reserve(ctx, space, at(9, 0), at(17, 0))
	require.NoError(t, err)
	require.Equal(t, booking.StatusReserved, b.Status())
	require.Equal(t, space, b.SpaceID())

	got, err := svc.GetByID(ctx, b.ID())
	require.NoError(t, err)
	require.Equal(t, b.ID(), got.ID())
}

func TestBookingService_Reserve_InvalidInterval(t *testing.T) {
	svc, repo, ctx := newBookingFixture(t)

	_, err := svc.Reserve(ctx, uuid.New(), at(17, 0), at(9, 0))
	require.ErrorIs(t, err, schedule.ErrInvalidInterval)
	require.Empty(t, repo.bookings)
}

func TestBookingService_Reserve_Conflict(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)
	space := uuid.New()

	_, err := svc.Reserve(ctx, space, at(9, 0), at(17, 0))
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, space, at(10, 0), at(11, 0))
	require.ErrorIs(t, err, schedule.ErrConflictingInterval)

	// Exact touch at the boundary is fine, as is another space entirely.
	_, err = svc.Reserve(ctx, space, at(17, 0), at(18, 0))
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, uuid.New(), at(10, 0), at(11, 0))
	require.NoError(t, err)
}

func TestBookingService_Reserve_CancelledFreesTheSlot(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)
	space := uuid.New()

	b, err := svc.Reserve(ctx, space, at(9, 0), at(17, 0))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, b.ID())
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, space, at(10, 0), at(11, 0))
	require.NoError(t, err)
}

func TestBookingService_CheckInCheckOut(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)

	b, err := svc.Reserve(ctx, uuid.New(), at(9, 0), at(17, 0))
	require.NoError(t, err)

	checkedIn, err := svc.CheckIn(ctx, b.ID())
	require.NoError(t, err)
	require.Equal(t, booking.StatusCheckedIn, checkedIn.Status())
	require.Len(t, checkedIn.Events(), 1)
	require.Equal(t, booking.EventCheckIn, checkedIn.Events()[0].Type)

	checkedOut, err := svc.CheckOut(ctx, b.ID())
	require.NoError(t, err)
	require.Equal(t, booking.StatusCheckedOut, checkedOut.Status())
	require.Len(t, checkedOut.Events(), 2)

	// History keeps the check-in record.
	require.Equal(t, booking.EventCheckIn, checkedOut.Events()[0].Type)
	require.Equal(t, booking.EventCheckOut, checkedOut.Events()[1].Type)
}

func TestBookingService_TransitionMatrix(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)

	b, err := svc.Reserve(ctx, uuid.New(), at(9, 0), at(17, 0))
	require.NoError(t, err)

	// Reserved cannot be checked out.
	_, err = svc.CheckOut(ctx, b.ID())
	require.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = svc.CheckIn(ctx, b.ID())
	require.NoError(t, err)

	// Checked-in cannot be checked in again.
	_, err = svc.CheckIn(ctx, b.ID())
	require.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = svc.CheckOut(ctx, b.ID())
	require.NoError(t, err)

	// Checked-out is terminal.
	_, err = svc.Cancel(ctx, b.ID())
	require.ErrorIs(t, err, booking.ErrInvalidTransition)

	got, err := svc.GetByID(ctx, b.ID())
	require.NoError(t, err)
	require.Equal(t, booking.StatusCheckedOut, got.Status())
}

func TestBookingService_NoDoubleBookingUnderConcurrency(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)
	space := uuid.New()

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, space, at(9, 0), at(17, 0))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicts int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, schedule.ErrConflictingInterval)
		conflicts++
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, attempts-1, conflicts)
}

func TestBookingService_ConcurrentModification(t *testing.T) {
	svc, repo, ctx := newBookingFixture(t)

	b, err := svc.Reserve(ctx, uuid.New(), at(9, 0), at(17, 0))
	require.NoError(t, err)

	stale, err := repo.GetByID(ctx, b.ID())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, b.ID())
	require.NoError(t, err)

	// The stale holder still believes the booking is reserved; its write
	// must not clobber the cancellation.
	checkedIn, err := stale.CheckIn(uuid.New())
	require.NoError(t, err)
	err = repo.Update(ctx, checkedIn, stale.Status())
	require.ErrorIs(t, err, serrors.ErrConcurrentModification)

	got, err := svc.GetByID(ctx, b.ID())
	require.NoError(t, err)
	require.Equal(t, booking.StatusCancelled, got.Status())
}

func TestBookingService_ConcurrentTransitionsDoNotLoseUpdates(t *testing.T) {
	svc, _, ctx := newBookingFixture(t)

	b, err := svc.Reserve(ctx, uuid.New(), at(9, 0), at(17, 0))
	require.NoError(t, err)

	start := make(chan struct{})
	var wg sync.WaitGroup
	var cancelErr, checkInErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, cancelErr = svc.Cancel(ctx, b.ID())
	}()
	go func() {
		defer wg.Done()
		<-start
		_, checkInErr = svc.CheckIn(ctx, b.ID())
	}()
	close(start)
	wg.Wait()

	for _, err := range []error{cancelErr, checkInErr} {
		if err != nil {
			require.True(t,
				errors.Is(err, serrors.ErrConcurrentModification) || errors.Is(err, booking.ErrInvalidTransition),
				"unexpected error: %v", err)
		}
	}

	got, err := svc.GetByID(ctx, b.ID())
	require.NoError(t, err)
	if cancelErr == nil {
		// A cancellation that reported success is never overwritten by
		// the concurrent check-in.
		require.Equal(t, booking.StatusCancelled, got.Status())
	} else {
		require.NoError(t, checkInErr)
		require.Equal(t, booking.StatusCheckedIn, got.Status())
	}
}
