package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

type SoftDeletedEvent struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	ByUserID   uuid.UUID
	Reason     string
	OccurredAt time.Time
}

type RestoredEvent struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	ByUserID   uuid.UUID
	OccurredAt time.Time
}

type HardDeletedEvent struct {
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	ByUserID   uuid.UUID
	ArchiveID  uuid.UUID
	OccurredAt time.Time
}
