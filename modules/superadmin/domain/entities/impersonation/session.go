// Package impersonation models bounded admin-as-user support sessions.
// Sessions are audit records: they end, but are never deleted.
package impersonation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/pkg/serrors"
)

var (
	ErrNotFound             = serrors.ErrNotFound.WithMessage("impersonation session not found")
	ErrSessionAlreadyActive = serrors.NewError("SESSION_ALREADY_ACTIVE", "admin already has an active impersonation session", "")
	ErrAlreadyEnded         = serrors.NewError("ALREADY_ENDED", "impersonation session is already ended", "")
	ErrReasonRequired       = serrors.NewError("REASON_REQUIRED", "impersonation requires a justification", "reason")
	ErrDenied               = serrors.NewError("IMPERSONATION_DENIED", "impersonation of this user is not allowed", "")
)

type EndReason string

const (
	EndManual       EndReason = "manual"
	EndTimeout      EndReason = "timeout"
	EndAdminRevoked EndReason = "admin_revoked"
)

type Session struct {
	id                 uuid.UUID
	tenantID           uuid.UUID
	adminUserID        uuid.UUID
	impersonatedUserID uuid.UUID
	reason             string
	ip                 string
	userAgent          string
	startedAt          time.Time
	endedAt            *time.Time
	endReason          *EndReason
}

func New(tenantID, adminUserID, impersonatedUserID uuid.UUID, reason, ip, userAgent string) Session {
	return Session{
		id:                 uuid.New(),
		tenantID:           tenantID,
		adminUserID:        adminUserID,
		impersonatedUserID: impersonatedUserID,
		reason:             reason,
		ip:                 ip,
		userAgent:          userAgent,
		startedAt:          time.Now(),
	}
}

func Hydrate(
	id, tenantID, adminUserID, impersonatedUserID uuid.UUID,
	reason, ip, userAgent string,
	startedAt time.Time,
	endedAt *time.Time,
	endReason *EndReason,
) Session {
	return Session{
		id:                 id,
		tenantID:           tenantID,
		adminUserID:        adminUserID,
		impersonatedUserID: impersonatedUserID,
		reason:             reason,
		ip:                 ip,
		userAgent:          userAgent,
		startedAt:          startedAt,
		endedAt:            endedAt,
		endReason:          endReason,
	}
}

func (s Session) ID() uuid.UUID                 { return s.id }
func (s Session) TenantID() uuid.UUID           { return s.tenantID }
func (s Session) AdminUserID() uuid.UUID        { return s.adminUserID }
func (s Session) ImpersonatedUserID() uuid.UUID { return s.impersonatedUserID }
func (s Session) Reason() string                { return s.reason }
func (s Session) IP() string                    { return s.ip }
func (s Session) UserAgent() string             { return s.userAgent }
func (s Session) StartedAt() time.Time          { return s.startedAt }
func (s Session) EndedAt() *time.Time           { return s.endedAt }
func (s Session) EndReason() *EndReason         { return s.endReason }
func (s Session) IsActive() bool                { return s.endedAt == nil }
func (s Session) IsZero() bool                  { return s.id == uuid.Nil }

func (s Session) End(reason EndReason) (Session, error) {
	if s.endedAt != nil {
		return s, ErrAlreadyEnded
	}
	now := time.Now()
	s.endedAt = &now
	s.endReason = &reason
	return s, nil
}

// Repository persists sessions. Create must fail with
// ErrSessionAlreadyActive when the admin already has an open session; a
// partial unique index on (admin_user_id) WHERE ended_at IS NULL backs
// the re-check inside the insert transaction.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)
	// GetActiveByAdmin returns the admin's single open session, or
	// ErrNotFound when there is none.
	GetActiveByAdmin(ctx context.Context, adminUserID uuid.UUID) (Session, error)
	// ListExpired returns open sessions started at or before the cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]Session, error)
	Create(ctx context.Context, s Session) error
	// End writes the terminal fields; a session ended underneath the
	// caller fails with ErrAlreadyEnded.
	End(ctx context.Context, s Session) error
}
