package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/entities/archive"
	"github.com/crewplane/crewplane/modules/core/domain/lifecycle"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

// LifecycleService applies the soft-delete / restore / hard-delete
// lifecycle to any aggregate whose repository implements lifecycle.Store.
type LifecycleService struct {
	archives  archive.Repository
	publisher eventbus.EventBus
}

func NewLifecycleService(archives archive.Repository, publisher eventbus.EventBus) *LifecycleService {
	return &LifecycleService{
		archives:  archives,
		publisher: publisher,
	}
}

func (s *LifecycleService) SoftDelete(ctx context.Context, store lifecycle.Store, id uuid.UUID, reason string) error {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return err
	}
	var res lifecycle.Resource
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = store.GetResource(txCtx, id, true)
		if err != nil {
			return err
		}
		if res.Deletion().IsDeleted() {
			return lifecycle.ErrAlreadyDeleted
		}
		return store.SetDeletion(txCtx, id, lifecycle.Deleted(identity.UserID, reason, time.Now()))
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(lifecycle.SoftDeletedEvent{
		TenantID:   res.TenantID(),
		EntityType: res.EntityType(),
		EntityID:   id,
		ByUserID:   identity.UserID,
		Reason:     reason,
		OccurredAt: time.Now(),
	})
	return nil
}

func (s *LifecycleService) Restore(ctx context.Context, store lifecycle.Store, id uuid.UUID) error {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return err
	}
	var res lifecycle.Resource
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = store.GetResource(txCtx, id, true)
		if err != nil {
			return err
		}
		if !res.Deletion().IsDeleted() {
			return lifecycle.ErrNotDeleted
		}
		return store.SetDeletion(txCtx, id, lifecycle.Active())
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(lifecycle.RestoredEvent{
		TenantID:   res.TenantID(),
		EntityType: res.EntityType(),
		EntityID:   id,
		ByUserID:   identity.UserID,
		OccurredAt: time.Now(),
	})
	return nil
}

// HardDelete archives a full snapshot of the entity and removes the row
// in one transaction, so either both happen or neither does.
func (s *LifecycleService) HardDelete(ctx context.Context, store lifecycle.Store, id uuid.UUID) error {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return err
	}
	var (
		res       lifecycle.Resource
		archiveID uuid.UUID
	)
	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = store.GetResource(txCtx, id, true)
		if err != nil {
			return err
		}
		snapshot, err := res.Snapshot()
		if err != nil {
			return err
		}
		record := archive.New(res.TenantID(), res.EntityType(), id, snapshot, identity.UserID)
		if err := s.archives.Create(txCtx, record); err != nil {
			return err
		}
		archiveID = record.ID
		return store.Purge(txCtx, id)
	})
	if err != nil {
		return err
	}
	s.publisher.Publish(lifecycle.HardDeletedEvent{
		TenantID:   res.TenantID(),
		EntityType: res.EntityType(),
		EntityID:   id,
		ByUserID:   identity.UserID,
		ArchiveID:  archiveID,
		OccurredAt: time.Now(),
	})
	return nil
}

func (s *LifecycleService) GetArchived(ctx context.Context, entityType string, entityID uuid.UUID) (*archive.Archive, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (*archive.Archive, error) {
		return s.archives.GetByEntity(txCtx, entityType, entityID)
	})
}
