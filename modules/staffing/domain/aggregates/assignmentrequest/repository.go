package assignmentrequest

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists assignment requests. Resolve is the atomic
// read-modify-write for the Pending -> {Approved, Rejected} step: it only
// writes when the stored status is still pending, and a request resolved
// underneath the caller fails with ErrAlreadyResolved.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (AssignmentRequest, error)
	ListPending(ctx context.Context) ([]AssignmentRequest, error)
	Create(ctx context.Context, r AssignmentRequest) error
	Resolve(ctx context.Context, r AssignmentRequest) error
}
