package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/aggregates/user"
	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/auditlog"
	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/impersonation"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

type ImpersonationStartedEvent struct {
	Session impersonation.Session
}

type ImpersonationEndedEvent struct {
	Session impersonation.Session
}

type ImpersonationService struct {
	sessions    impersonation.Repository
	users       user.Repository
	audits      auditlog.Repository
	publisher   eventbus.EventBus
	maxDuration time.Duration
}

func NewImpersonationService(
	sessions impersonation.Repository,
	users user.Repository,
	audits auditlog.Repository,
	publisher eventbus.EventBus,
	maxDuration time.Duration,
) *ImpersonationService {
	return &ImpersonationService{
		sessions:    sessions,
		users:       users,
		audits:      audits,
		publisher:   publisher,
		maxDuration: maxDuration,
	}
}

// CanImpersonate is the pure eligibility decision: nil means allowed.
// Every denial carries the same code so callers cannot probe users, only
// render the message.
func (s *ImpersonationService) CanImpersonate(ctx context.Context, targetID uuid.UUID) error {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return err
	}
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.canImpersonate(txCtx, identity.ActualUserID, targetID)
	})
}

func (s *ImpersonationService) canImpersonate(ctx context.Context, adminID, targetID uuid.UUID) error {
	if targetID == adminID {
		return impersonation.ErrDenied.WithMessage("cannot impersonate yourself")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return impersonation.ErrDenied.WithMessage("target user not found")
		}
		return err
	}
	if target.IsSystemAdmin() {
		return impersonation.ErrDenied.WithMessage("cannot impersonate a system administrator")
	}
	if !target.IsActive() {
		return impersonation.ErrDenied.WithMessage("cannot impersonate an inactive user")
	}
	return nil
}

// Start re-validates eligibility and opens the session. The active-session
// check runs in the same transaction as the insert, and the store's
// partial unique index closes the remaining race.
func (s *ImpersonationService) Start(ctx context.Context, targetID uuid.UUID, reason string) (impersonation.Session, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return impersonation.Session{}, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return impersonation.Session{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return impersonation.Session{}, impersonation.ErrReasonRequired
	}

	var ip, userAgent string
	if params, ok := composables.UseParams(ctx); ok {
		ip = params.IP
		userAgent = params.UserAgent
	}

	adminID := identity.ActualUserID
	session := impersonation.New(tenantID, adminID, targetID, reason, ip, userAgent)
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		if err := s.canImpersonate(txCtx, adminID, targetID); err != nil {
			return err
		}
		if _, err := s.sessions.GetActiveByAdmin(txCtx, adminID); err == nil {
			return impersonation.ErrSessionAlreadyActive
		} else if !errors.Is(err, impersonation.ErrNotFound) {
			return err
		}
		if err := s.sessions.Create(txCtx, session); err != nil {
			return err
		}
		return s.audits.Create(txCtx, auditlog.New(
			tenantID, adminID,
			auditlog.ActionImpersonationStarted,
			"impersonation_session", session.ID(),
			reason, ip, userAgent,
		))
	})
	if err != nil {
		return impersonation.Session{}, err
	}

	s.publisher.Publish(ImpersonationStartedEvent{Session: session})
	return session, nil
}

func (s *ImpersonationService) End(ctx context.Context, sessionID uuid.UUID, endReason impersonation.EndReason) (impersonation.Session, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return impersonation.Session{}, err
	}
	return s.endAs(ctx, sessionID, endReason, identity.ActualUserID)
}

func (s *ImpersonationService) endAs(ctx context.Context, sessionID uuid.UUID, endReason impersonation.EndReason, actorID uuid.UUID) (impersonation.Session, error) {
	var ended impersonation.Session
	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		current, err := s.sessions.GetByID(txCtx, sessionID)
		if err != nil {
			return err
		}
		ended, err = current.End(endReason)
		if err != nil {
			return err
		}
		if err := s.sessions.End(txCtx, ended); err != nil {
			return err
		}
		return s.audits.Create(txCtx, auditlog.New(
			ended.TenantID(), actorID,
			auditlog.ActionImpersonationEnded,
			"impersonation_session", ended.ID(),
			string(endReason), "", "",
		))
	})
	if err != nil {
		return impersonation.Session{}, err
	}

	s.publisher.Publish(ImpersonationEndedEvent{Session: ended})
	return ended, nil
}

// GetActiveSession returns the admin's open session, or nil when idle.
func (s *ImpersonationService) GetActiveSession(ctx context.Context, adminUserID uuid.UUID) (*impersonation.Session, error) {
	session, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (impersonation.Session, error) {
		return s.sessions.GetActiveByAdmin(txCtx, adminUserID)
	})
	if err != nil {
		if errors.Is(err, impersonation.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ExpireOverdue force-ends sessions that have outlived the configured
// maximum duration. Each session ends in its own transaction so one
// failure does not hold the rest open. The session's own admin is
// recorded as the audit actor; no request identity is required, so the
// background sweep can call this directly.
func (s *ImpersonationService) ExpireOverdue(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.maxDuration)
	expired, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) ([]impersonation.Session, error) {
		return s.sessions.ListExpired(txCtx, cutoff)
	})
	if err != nil {
		return 0, err
	}

	ended := 0
	for _, session := range expired {
		if _, err := s.endAs(ctx, session.ID(), impersonation.EndTimeout, session.AdminUserID()); err != nil {
			if errors.Is(err, impersonation.ErrAlreadyEnded) {
				continue
			}
			return ended, err
		}
		ended++
	}
	return ended, nil
}

// Decorate resolves the acting identity for a request carrying an active
// session marker: authorization sees the impersonated user, audit keeps
// keying off the original admin.
func (s *ImpersonationService) Decorate(ctx context.Context, identity composables.Identity) (composables.Identity, error) {
	if identity.ImpersonationSessionID == nil {
		return identity, nil
	}

	session, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (impersonation.Session, error) {
		return s.sessions.GetByID(txCtx, *identity.ImpersonationSessionID)
	})
	if err != nil {
		return composables.Identity{}, err
	}
	if !session.IsActive() {
		identity.ImpersonationSessionID = nil
		return identity, nil
	}

	identity.ActualUserID = session.AdminUserID()
	identity.UserID = session.ImpersonatedUserID()
	identity.IsSystemAdmin = false
	return identity, nil
}
