package booking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrNotFound          = serrors.ErrNotFound.WithMessage("booking not found")
	ErrInvalidTransition = serrors.NewError("INVALID_TRANSITION", "booking status transition not allowed", "")
)

type Status string

const (
	StatusReserved   Status = "reserved"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
)

// Blocking reports whether a booking in this status claims the space for
// conflict detection.
func (s Status) Blocking() bool {
	return s == StatusReserved || s == StatusCheckedIn
}

type EventType string

const (
	EventCheckIn   EventType = "check_in"
	EventCheckOut  EventType = "check_out"
	EventCancelled EventType = "cancelled"
)

// EventRecord is an append-only entry in the booking's history. Records
// are never rewritten once persisted.
type EventRecord struct {
	ID       uuid.UUID
	Type     EventType
	ByUserID uuid.UUID
	At       time.Time
}

type Booking struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	spaceID   uuid.UUID
	bookedBy  uuid.UUID
	interval  schedule.Interval
	status    Status
	events    []EventRecord
	deletion  lifecycle.State
	createdAt time.Time
	updatedAt time.Time
}

func New(tenantID, spaceID, bookedBy uuid.UUID, interval schedule.Interval) Booking {
	now := time.Now()
	return Booking{
		id:        uuid.New(),
		tenantID:  tenantID,
		spaceID:   spaceID,
		bookedBy:  bookedBy,
		interval:  interval,
		status:    StatusReserved,
		deletion:  lifecycle.Active(),
		createdAt: now,
		updatedAt: now,
	}
}

func Hydrate(
	id, tenantID, spaceID, bookedBy uuid.UUID,
	interval schedule.Interval,
	status Status,
	events []EventRecord,
	deletion lifecycle.State,
	createdAt, updatedAt time.Time,
) Booking {
	return Booking{
		id:        id,
		tenantID:  tenantID,
		spaceID:   spaceID,
		bookedBy:  bookedBy,
		interval:  interval,
		status:    status,
		events:    events,
		deletion:  deletion,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (b Booking) ID() uuid.UUID               { return b.id }
func (b Booking) TenantID() uuid.UUID         { return b.tenantID }
func (b Booking) SpaceID() uuid.UUID          { return b.spaceID }
func (b Booking) BookedBy() uuid.UUID         { return b.bookedBy }
func (b Booking) Interval() schedule.Interval { return b.interval }
func (b Booking) Status() Status              { return b.status }
func (b Booking) Events() []EventRecord       { return b.events }
func (b Booking) CreatedAt() time.Time        { return b.createdAt }
func (b Booking) UpdatedAt() time.Time        { return b.updatedAt }
func (b Booking) IsZero() bool                { return b.id == uuid.Nil }

func (b Booking) EntityType() string        { return "booking" }
func (b Booking) Deletion() lifecycle.State { return b.deletion }

// Entry projection for the conflict scan.
func (b Booking) EntryID() uuid.UUID     { return b.id }
func (b Booking) ResourceKey() uuid.UUID { return b.spaceID }
func (b Booking) Blocking() bool         { return b.status.Blocking() && !b.deletion.IsDeleted() }

func (b Booking) CheckIn(byUserID uuid.UUID) (Booking, error) {
	if b.status != StatusReserved {
		return b, ErrInvalidTransition.WithMessage("only a reserved booking can be checked in")
	}
	return b.transition(StatusCheckedIn, EventCheckIn, byUserID), nil
}

func (b Booking) CheckOut(byUserID uuid.UUID) (Booking, error) {
	if b.status != StatusCheckedIn {
		return b, ErrInvalidTransition.WithMessage("only a checked-in booking can be checked out")
	}
	return b.transition(StatusCheckedOut, EventCheckOut, byUserID), nil
}

func (b Booking) Cancel(byUserID uuid.UUID) (Booking, error) {
	if b.status != StatusReserved && b.status != StatusCheckedIn {
		return b, ErrInvalidTransition.WithMessage("only a reserved or checked-in booking can be cancelled")
	}
	return b.transition(StatusCancelled, EventCancelled, byUserID), nil
}

func (b Booking) transition(status Status, event EventType, byUserID uuid.UUID) Booking {
	now := time.Now()
	b.status = status
	b.updatedAt = now
	b.events = append(b.events[:len(b.events):len(b.events)], EventRecord{
		ID:       uuid.New(),
		Type:     event,
		ByUserID: byUserID,
		At:       now,
	})
	return b
}

type snapshot struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	SpaceID   uuid.UUID `json:"space_id"`
	BookedBy  uuid.UUID `json:"booked_by"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot serializes the booking for archival before a hard delete.
func (b Booking) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		ID:        b.id,
		TenantID:  b.tenantID,
		SpaceID:   b.spaceID,
		BookedBy:  b.bookedBy,
		StartsAt:  b.interval.Start(),
		EndsAt:    b.interval.End(),
		Status:    b.status,
		CreatedAt: b.createdAt,
	})
}
