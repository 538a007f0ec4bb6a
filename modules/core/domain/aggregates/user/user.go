package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var ErrNotFound = serrors.ErrNotFound.WithMessage("user not found")

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User is a tenant member. People referenced by bookings, assignments
// and approvals all resolve to users; a user flagged as system admin is
// exempt from impersonation.
type User struct {
	id            uuid.UUID
	tenantID      uuid.UUID
	email         string
	displayName   string
	status        Status
	isSystemAdmin bool
	createdAt     time.Time
	updatedAt     time.Time
}

type Option func(*User)

func WithID(id uuid.UUID) Option {
	return func(u *User) {
		u.id = id
	}
}

func WithSystemAdmin() Option {
	return func(u *User) {
		u.isSystemAdmin = true
	}
}

func New(tenantID uuid.UUID, email, displayName string, opts ...Option) User {
	now := time.Now()
	u := User{
		id:          uuid.New(),
		tenantID:    tenantID,
		email:       strings.ToLower(strings.TrimSpace(email)),
		displayName: strings.TrimSpace(displayName),
		status:      StatusActive,
		createdAt:   now,
		updatedAt:   now,
	}
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

func Hydrate(
	id, tenantID uuid.UUID,
	email, displayName string,
	status Status,
	isSystemAdmin bool,
	createdAt, updatedAt time.Time,
) User {
	return User{
		id:            id,
		tenantID:      tenantID,
		email:         email,
		displayName:   displayName,
		status:        status,
		isSystemAdmin: isSystemAdmin,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (u User) ID() uuid.UUID        { return u.id }
func (u User) TenantID() uuid.UUID  { return u.tenantID }
func (u User) Email() string        { return u.email }
func (u User) DisplayName() string  { return u.displayName }
func (u User) Status() Status       { return u.status }
func (u User) IsSystemAdmin() bool  { return u.isSystemAdmin }
func (u User) CreatedAt() time.Time { return u.createdAt }
func (u User) UpdatedAt() time.Time { return u.updatedAt }
func (u User) IsActive() bool       { return u.status == StatusActive }

func (u User) Deactivated() User {
	u.status = StatusInactive
	u.updatedAt = time.Now()
	return u
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) error
	List(ctx context.Context) ([]User, error)
}
