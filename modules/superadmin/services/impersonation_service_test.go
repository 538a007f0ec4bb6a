package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/core/domain/aggregates/user"
	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/auditlog"
	"github.com/crewplane/crewplane/modules/superadmin/domain/entities/impersonation"
	"github.com/crewplane/crewplane/modules/superadmin/services"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
	"github.com/crewplane/crewplane/pkg/itf"
	"github.com/crewplane/crewplane/pkg/logging"
)

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]impersonation.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]impersonation.Session)}
}

func (r *memSessionRepo) GetByID(_ context.Context, id uuid.UUID) (impersonation.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return impersonation.Session{}, impersonation.ErrNotFound
	}
	return s, nil
}

func (r *memSessionRepo) GetActiveByAdmin(_ context.Context, adminUserID uuid.UUID) (impersonation.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.AdminUserID() == adminUserID && s.IsActive() {
			return s, nil
		}
	}
	return impersonation.Session{}, impersonation.ErrNotFound
}

func (r *memSessionRepo) ListExpired(_ context.Context, cutoff time.Time) ([]impersonation.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []impersonation.Session
	for _, s := range r.sessions {
		if s.IsActive() && !s.StartedAt().After(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Create(_ context.Context, s impersonation.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.AdminUserID() == s.AdminUserID() && existing.IsActive() {
			return impersonation.ErrSessionAlreadyActive
		}
	}
	r.sessions[s.ID()] = s
	return nil
}

func (r *memSessionRepo) End(_ context.Context, s impersonation.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.sessions[s.ID()]
	if !ok {
		return impersonation.ErrNotFound
	}
	if !existing.IsActive() {
		return impersonation.ErrAlreadyEnded
	}
	r.sessions[s.ID()] = s
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]user.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID()] = u
	return u, nil
}

func (r *memUserRepo) Update(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID()]; !ok {
		return user.ErrNotFound
	}
	r.users[u.ID()] = u
	return nil
}

func (r *memUserRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	records []*auditlog.AuditLog
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{}
}

func (r *memAuditRepo) Create(_ context.Context, log *auditlog.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, log)
	return nil
}

func (r *memAuditRepo) GetByID(_ context.Context, id uuid.UUID) (*auditlog.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, auditlog.ErrNotFound
}

func (r *memAuditRepo) ListByActor(_ context.Context, actorUserID uuid.UUID) ([]*auditlog.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auditlog.AuditLog
	for _, rec := range r.records {
		if rec.ActorUserID == actorUserID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type impersonationFixture struct {
	service  *services.ImpersonationService
	sessions *memSessionRepo
	users    *memUserRepo
	audits   *memAuditRepo

	tenantID   uuid.UUID
	adminID    uuid.UUID
	targetID   uuid.UUID
	inactiveID uuid.UUID
	otherAdmin uuid.UUID
}

func newImpersonationFixture(t *testing.T) *impersonationFixture {
	t.Helper()

	f := &impersonationFixture{
		sessions: newMemSessionRepo(),
		users:    newMemUserRepo(),
		audits:   newMemAuditRepo(),
		tenantID: uuid.New(),
	}

	admin := user.New(f.tenantID, "admin@example.com", "Root Admin", user.WithSystemAdmin())
	target := user.New(f.tenantID, "pat@example.com", "Pat Example")
	inactive := user.New(f.tenantID, "gone@example.com", "Gone User").Deactivated()
	otherAdmin := user.New(f.tenantID, "second@example.com", "Second Admin", user.WithSystemAdmin())
	for _, u := range []user.User{admin, target, inactive, otherAdmin} {
		_, err := f.users.Create(context.Background(), u)
		require.NoError(t, err)
	}
	f.adminID = admin.ID()
	f.targetID = target.ID()
	f.inactiveID = inactive.ID()
	f.otherAdmin = otherAdmin.ID()

	f.service = services.NewImpersonationService(
		f.sessions,
		f.users,
		f.audits,
		eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel)),
		4*time.Hour,
	)
	return f
}

func (f *impersonationFixture) adminCtx() context.Context {
	return itf.ContextWithIdentity(f.tenantID, composables.Identity{
		UserID:        f.adminID,
		IsSystemAdmin: true,
	})
}

func TestImpersonationService_StartOpensSession(t *testing.T) {
	f := newImpersonationFixture(t)
	ctx := f.adminCtx()

	session, err := f.service.Start(ctx, f.targetID, "support ticket #4411")
	require.NoError(t, err)
	require.True(t, session.IsActive())
	require.Equal(t, f.adminID, session.AdminUserID())
	require.Equal(t, f.targetID, session.ImpersonatedUserID())
	require.Equal(t, "support ticket #4411", session.Reason())

	active, err := f.service.GetActiveSession(ctx, f.adminID)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, session.ID(), active.ID())

	records, err := f.audits.ListByActor(ctx, f.adminID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, auditlog.ActionImpersonationStarted, records[0].Action)
	require.Equal(t, session.ID(), records[0].EntityID)
}

func TestImpersonationService_StartRequiresReason(t *testing.T) {
	f := newImpersonationFixture(t)

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := f.service.Start(f.adminCtx(), f.targetID, reason)
		require.ErrorIs(t, err, impersonation.ErrReasonRequired)
	}
}

func TestImpersonationService_SingleActiveSessionPerAdmin(t *testing.T) {
	f := newImpersonationFixture(t)
	ctx := f.adminCtx()

	first, err := f.service.Start(ctx, f.targetID, "first look")
	require.NoError(t, err)

	_, err = f.service.Start(ctx, f.targetID, "second look")
	require.ErrorIs(t, err, impersonation.ErrSessionAlreadyActive)

	otherCtx := itf.ContextWithIdentity(f.tenantID, composables.Identity{
		UserID:        f.otherAdmin,
		IsSystemAdmin: true,
	})
	_, err = f.service.Start(otherCtx, f.targetID, "parallel admin")
	require.NoError(t, err)

	_, err = f.service.End(ctx, first.ID(), impersonation.EndManual)
	require.NoError(t, err)

	_, err = f.service.Start(ctx, f.targetID, "after ending")
	require.NoError(t, err)
}

func TestImpersonationService_DenialRules(t *testing.T) {
	f := newImpersonationFixture(t)
	ctx := f.adminCtx()

	cases := []struct {
		name     string
		targetID uuid.UUID
	}{
		{"self", f.adminID},
		{"system admin", f.otherAdmin},
		{"inactive user", f.inactiveID},
		{"unknown user", uuid.New()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, f.service.CanImpersonate(ctx, tc.targetID), impersonation.ErrDenied)

			_, err := f.service.Start(ctx, tc.targetID, "should not open")
			require.ErrorIs(t, err, impersonation.ErrDenied)
		})
	}

	require.NoError(t, f.service.CanImpersonate(ctx, f.targetID))
}

func TestImpersonationService_EndIsTerminal(t *testing.T) {
	f := newImpersonationFixture(t)
	ctx := f.adminCtx()

	session, err := f.service.Start(ctx, f.targetID, "one-shot")
	require.NoError(t, err)

	ended, err := f.service.End(ctx, session.ID(), impersonation.EndManual)
	require.NoError(t, err)
	require.False(t, ended.IsActive())
	require.NotNil(t, ended.EndReason())
	require.Equal(t, impersonation.EndManual, *ended.EndReason())

	_, err = f.service.End(ctx, session.ID(), impersonation.EndManual)
	require.ErrorIs(t, err, impersonation.ErrAlreadyEnded)

	active, err := f.service.GetActiveSession(ctx, f.adminID)
	require.NoError(t, err)
	require.Nil(t, active)

	records, err := f.audits.ListByActor(ctx, f.adminID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, auditlog.ActionImpersonationEnded, records[1].Action)
}

func TestImpersonationService_ExpireOverdue(t *testing.T) {
	f := newImpersonationFixture(t)
	ctx := f.adminCtx()

	overdue := impersonation.Hydrate(
		uuid.New(), f.tenantID, f.otherAdmin, f.targetID,
		"forgotten session", "", "",
		time.Now().Add(-5*time.Hour), nil, nil,
	)
	require.NoError(t, f.sessions.Create(ctx, overdue))

	fresh, err := f.service.Start(ctx, f.targetID, "still working")
	require.NoError(t, err)

	ended, err := f.service.ExpireOverdue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ended)

	expired, err := f.sessions.GetByID(ctx, overdue.ID())
	require.NoError(t, err)
	require.False(t, expired.IsActive())
	require.Equal(t, impersonation.EndTimeout, *expired.EndReason())

	stillActive, err := f.service.GetActiveSession(ctx, f.adminID)
	require.NoError(t, err)
	require.NotNil(t, stillActive)
	require.Equal(t, fresh.ID(), stillActive.ID())
}

func TestImpersonationService_DecorateResolvesActingIdentity(t *testing.T) {
	f := newImpersonationFixture(t)
	ctx := f.adminCtx()

	session, err := f.service.Start(ctx, f.targetID, "checking permissions")
	require.NoError(t, err)

	sessionID := session.ID()
	identity, err := f.service.Decorate(ctx, composables.Identity{
		UserID:                 f.adminID,
		IsSystemAdmin:          true,
		ImpersonationSessionID: &sessionID,
	})
	require.NoError(t, err)
	require.Equal(t, f.targetID, identity.UserID)
	require.Equal(t, f.adminID, identity.ActualUserID)
	require.False(t, identity.IsSystemAdmin)
	require.True(t, identity.Impersonating())

	_, err = f.service.End(ctx, sessionID, impersonation.EndAdminRevoked)
	require.NoError(t, err)

	identity, err = f.service.Decorate(ctx, composables.Identity{
		UserID:                 f.adminID,
		ActualUserID:           f.adminID,
		IsSystemAdmin:          true,
		ImpersonationSessionID: &sessionID,
	})
	require.NoError(t, err)
	require.Equal(t, f.adminID, identity.UserID)
	require.True(t, identity.IsSystemAdmin)
	require.False(t, identity.Impersonating())
}

func TestImpersonationService_DecorateWithoutSessionIsPassthrough(t *testing.T) {
	f := newImpersonationFixture(t)

	in := composables.Identity{UserID: f.adminID, ActualUserID: f.adminID}
	out, err := f.service.Decorate(f.adminCtx(), in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}
