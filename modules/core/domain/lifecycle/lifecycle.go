package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrAlreadyDeleted = serrors.NewError("ALREADY_DELETED", "record is already deleted", "")
	ErrNotDeleted     = serrors.NewError("NOT_DELETED", "record is not deleted", "")
)

// State is the soft-delete marker every tenant-owned entity carries.
type State struct {
	deleted         bool
	deletedAt       *time.Time
	deletedByUserID uuid.UUID
	reason          string
}

func Active() State {
	return State{}
}

func Deleted(byUserID uuid.UUID, reason string, at time.Time) State {
	return State{
		deleted:         true,
		deletedAt:       &at,
		deletedByUserID: byUserID,
		reason:          reason,
	}
}

func (s State) IsDeleted() bool            { return s.deleted }
func (s State) DeletedAt() *time.Time      { return s.deletedAt }
func (s State) DeletedByUserID() uuid.UUID { return s.deletedByUserID }
func (s State) Reason() string             { return s.reason }

// Resource is any tenant-owned entity subject to the delete lifecycle.
type Resource interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	EntityType() string
	Deletion() State
	// Snapshot serializes the full entity state for archival before a
	// hard delete.
	Snapshot() ([]byte, error)
}

// Store is the per-aggregate persistence surface the lifecycle service
// drives. Every aggregate repository that supports the lifecycle
// implements it. Lookups are tenant-scoped; a foreign id is NotFound.
type Store interface {
	GetResource(ctx context.Context, id uuid.UUID, includeDeleted bool) (Resource, error)
	SetDeletion(ctx context.Context, id uuid.UUID, state State) error
	// Purge physically removes the row. Callers archive first, in the
	// same transaction.
	Purge(ctx context.Context, id uuid.UUID) error
}
