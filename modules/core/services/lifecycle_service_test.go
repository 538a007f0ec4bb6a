package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/crewplane/crewplane/modules/core/domain/entities/archive"
	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/modules/core/services"
	"github.com/crewplane/crewplane/pkg/eventbus"
	"github.com/crewplane/crewplane/pkg/itf"
	"github.com/crewplane/crewplane/pkg/logging"
)

type fakeResource struct {
	id       uuid.UUID
	tenantID uuid.UUID
	deletion lifecycle.State
}

func (r *fakeResource) ID() uuid.UUID            { return r.id }
func (r *fakeResource) TenantID() uuid.UUID      { return r.tenantID }
func (r *fakeResource) EntityType() string       { return "booking" }
func (r *fakeResource) Deletion() lifecycle.State { return r.deletion }
func (r *fakeResource) Snapshot() ([]byte, error) {
	return []byte(`{"id":"` + r.id.String() + `"}`), nil
}

type mockStore struct {
	resources map[uuid.UUID]*fakeResource
}

func newMockStore() *mockStore {
	return &mockStore{resources: make(map[uuid.UUID]*fakeResource)}
}

func (s *mockStore) GetResource(_ context.Context, id uuid.UUID, includeDeleted bool) (lifecycle.Resource, error) {
	res, ok := s.resources[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	if res.deletion.IsDeleted() && !includeDeleted {
		return nil, archive.ErrNotFound
	}
	return res, nil
}

func (s *mockStore) SetDeletion(_ context.Context, id uuid.UUID, state lifecycle.State) error {
	res, ok := s.resources[id]
	if !ok {
		return archive.ErrNotFound
	}
	res.deletion = state
	return nil
}

func (s *mockStore) Purge(_ context.Context, id uuid.UUID) error {
	if _, ok := s.resources[id]; !ok {
		return archive.ErrNotFound
	}
	delete(s.resources, id)
	return nil
}

type mockArchiveRepo struct {
	archives []*archive.Archive
}

func (m *mockArchiveRepo) Create(_ context.Context, a *archive.Archive) error {
	m.archives = append(m.archives, a)
	return nil
}

func (m *mockArchiveRepo) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID) (*archive.Archive, error) {
	for _, a := range m.archives {
		if a.EntityType == entityType && a.EntityID == entityID {
			return a, nil
		}
	}
	return nil, archive.ErrNotFound
}

func (m *mockArchiveRepo) ListByType(_ context.Context, entityType string) ([]*archive.Archive, error) {
	var out []*archive.Archive
	for _, a := range m.archives {
		if a.EntityType == entityType {
			out = append(out, a)
		}
	}
	return out, nil
}

func newLifecycleFixture(t *testing.T) (*services.LifecycleService, *mockStore, *mockArchiveRepo, context.Context, uuid.UUID) {
	t.Helper()
	tenantID := uuid.New()
	userID := uuid.New()
	store := newMockStore()
	archives := &mockArchiveRepo{}
	bus := eventbus.NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))
	svc := services.NewLifecycleService(archives, bus)
	return svc, store, archives, itf.Context(tenantID, userID), tenantID
}

func TestLifecycleService_SoftDelete(t *testing.T) {
	svc, store, _, ctx, tenantID := newLifecycleFixture(t)

	id := uuid.New()
	store.resources[id] = &fakeResource{id: id, tenantID: tenantID, deletion: lifecycle.Active()}

	require.NoError(t, svc.SoftDelete(ctx, store, id, "duplicate entry"))

	res := store.resources[id]
	require.True(t, res.deletion.IsDeleted())
	require.Equal(t, "duplicate entry", res.deletion.Reason())
	require.NotNil(t, res.deletion.DeletedAt())
	require.WithinDuration(t, time.Now(), *res.deletion.DeletedAt(), time.Minute)
}

func TestLifecycleService_SoftDelete_AlreadyDeleted(t *testing.T) {
	svc, store, _, ctx, tenantID := newLifecycleFixture(t)

	id := uuid.New()
	store.resources[id] = &fakeResource{
		id:       id,
		tenantID: tenantID,
		deletion: lifecycle.Deleted(uuid.New(), "stale", time.Now()),
	}

	err := svc.SoftDelete(ctx, store, id, "again")
	require.ErrorIs(t, err, lifecycle.ErrAlreadyDeleted)
}

func TestLifecycleService_Restore(t *testing.T) {
	svc, store, _, ctx, tenantID := newLifecycleFixture(t)

	id := uuid.New()
	store.resources[id] = &fakeResource{
		id:       id,
		tenantID: tenantID,
		deletion: lifecycle.Deleted(uuid.New(), "mistake", time.Now()),
	}

	require.NoError(t, svc.Restore(ctx, store, id))
	require.False(t, store.resources[id].deletion.IsDeleted())
	require.Empty(t, store.resources[id].deletion.Reason())
}

func TestLifecycleService_Restore_NotDeleted(t *testing.T) {
	svc, store, _, ctx, tenantID := newLifecycleFixture(t)

	id := uuid.New()
	store.resources[id] = &fakeResource{id: id, tenantID: tenantID, deletion: lifecycle.Active()}

	err := svc.Restore(ctx, store, id)
	require.ErrorIs(t, err, lifecycle.ErrNotDeleted)
}

func TestLifecycleService_HardDelete_ArchivesSnapshot(t *testing.T) {
	svc, store, archives, ctx, tenantID := newLifecycleFixture(t)

	id := uuid.New()
	store.resources[id] = &fakeResource{id: id, tenantID: tenantID, deletion: lifecycle.Active()}

	require.NoError(t, svc.HardDelete(ctx, store, id))

	_, exists := store.resources[id]
	require.False(t, exists, "row must be purged")

	require.Len(t, archives.archives, 1)
	rec := archives.archives[0]
	require.Equal(t, tenantID, rec.TenantID)
	require.Equal(t, "booking", rec.EntityType)
	require.Equal(t, id, rec.EntityID)
	require.Equal(t, archive.StatusPermanentlyDeleted, rec.Status)
	require.JSONEq(t, `{"id":"`+id.String()+`"}`, string(rec.Snapshot))

	got, err := svc.GetArchived(ctx, "booking", id)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
}

func TestLifecycleService_HardDelete_NotFound(t *testing.T) {
	svc, store, archives, ctx, _ := newLifecycleFixture(t)

	err := svc.HardDelete(ctx, store, uuid.New())
	require.Error(t, err)
	require.Empty(t, archives.archives, "nothing may be archived when the lookup fails")
}
