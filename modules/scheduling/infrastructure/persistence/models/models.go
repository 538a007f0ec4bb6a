package models

import (
	"database/sql"
	"time"
)

type Booking struct {
	ID             string
	TenantID       string
	SpaceID        string
	BookedBy       string
	StartsAt       time.Time
	EndsAt         time.Time
	Status         string
	IsDeleted      bool
	DeletedAt      sql.NullTime
	DeletedBy      sql.NullString
	DeletionReason sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BookingEvent struct {
	ID         string
	BookingID  string
	TenantID   string
	EventType  string
	ByUserID   string
	OccurredAt time.Time
}
