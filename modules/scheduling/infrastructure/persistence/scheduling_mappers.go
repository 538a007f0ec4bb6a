package persistence

import (
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/scheduling/domain/aggregates/booking"
	"github.com/crewplane/crewplane/modules/scheduling/domain/schedule"
	"github.com/crewplane/crewplane/modules/scheduling/infrastructure/persistence/models"
)

func toDomainBooking(m *models.Booking, events []booking.EventRecord) booking.Booking {
	return booking.Hydrate(
		parseUUID(m.ID),
		parseUUID(m.TenantID),
		parseUUID(m.SpaceID),
		parseUUID(m.BookedBy),
		schedule.MustInterval(m.StartsAt, m.EndsAt),
		booking.Status(m.Status),
		events,
		toDeletionState(m.IsDeleted, m.DeletedAt.Time, m.DeletedBy.String, m.DeletionReason.String, m.DeletedAt.Valid),
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func toDomainBookingEvent(m *models.BookingEvent) booking.EventRecord {
	return booking.EventRecord{
		ID:       parseUUID(m.ID),
		Type:     booking.EventType(m.EventType),
		ByUserID: parseUUID(m.ByUserID),
		At:       m.OccurredAt,
	}
}

func toDeletionState(deleted bool, at time.Time, by, reason string, atValid bool) lifecycle.State {
	if !deleted {
		return lifecycle.Active()
	}
	if !atValid {
		at = time.Time{}
	}
	return lifecycle.Deleted(parseUUID(by), reason, at)
}

func parseUUID(v string) uuid.UUID {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil
	}
	return id
}
