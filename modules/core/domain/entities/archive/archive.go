package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

const StatusPermanentlyDeleted = "permanently_deleted"

var ErrNotFound = serrors.ErrNotFound.WithMessage("archive record not found")

// Archive is the immutable snapshot retained after a hard delete.
type Archive struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Status     string
	Snapshot   json.RawMessage
	DeletedBy  uuid.UUID
	CreatedAt  time.Time
}

func New(tenantID uuid.UUID, entityType string, entityID uuid.UUID, snapshot []byte, deletedBy uuid.UUID) *Archive {
	return &Archive{
		ID:         uuid.New(),
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     StatusPermanentlyDeleted,
		Snapshot:   snapshot,
		DeletedBy:  deletedBy,
		CreatedAt:  time.Now(),
	}
}

type Repository interface {
	Create(ctx context.Context, a *Archive) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (*Archive, error)
	ListByType(ctx context.Context, entityType string) ([]*Archive, error)
}
