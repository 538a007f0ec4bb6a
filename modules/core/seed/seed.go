// Package seed provisions the baseline records every installation needs
// before any tenant-scoped workflow can run.
package seed

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/crewplane/crewplane/modules/core/domain/entities/group"
	"github.com/crewplane/crewplane/modules/core/domain/entities/tenant"
	"github.com/crewplane/crewplane/modules/core/infrastructure/persistence"
	"github.com/crewplane/crewplane/pkg/application"
	"github.com/crewplane/crewplane/pkg/composables"
)

// DefaultTenantID is stable across installations so that bootstrap tooling
// can reference the default tenant without a lookup.
var DefaultTenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

const defaultTenantDomain = "default.localhost"

func DefaultTenant(ctx context.Context, app application.Application) error {
	ctx = composables.WithPool(ctx, app.DB())
	return composables.InTx(ctx, func(txCtx context.Context) error {
		repo := persistence.NewTenantRepository()

		_, err := repo.GetByDomain(txCtx, defaultTenantDomain)
		if err == nil {
			return nil
		}
		if !errors.Is(err, tenant.ErrNotFound) {
			return errors.Wrap(err, "failed to look up default tenant")
		}

		t := tenant.New(
			"Default",
			tenant.WithID(DefaultTenantID),
			tenant.WithDomain(defaultTenantDomain),
		)
		if _, err := repo.Create(txCtx, t); err != nil {
			return errors.Wrap(err, "failed to seed default tenant")
		}
		app.Logger().WithField("tenant_id", DefaultTenantID).Info("seeded default tenant")
		return nil
	})
}

func SystemAdminGroup(ctx context.Context, app application.Application) error {
	ctx = composables.WithPool(ctx, app.DB())
	ctx = composables.WithTenantID(ctx, DefaultTenantID)
	return composables.InTx(ctx, func(txCtx context.Context) error {
		repo := persistence.NewGroupRepository()

		_, err := repo.GetSystemAdmin(txCtx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, group.ErrNotFound) {
			return errors.Wrap(err, "failed to look up system admin group")
		}

		g := group.NewSystemAdmin(DefaultTenantID)
		if _, err := repo.Create(txCtx, g); err != nil {
			return errors.Wrap(err, "failed to seed system admin group")
		}
		app.Logger().WithField("group_id", g.ID()).Info("seeded system admin group")
		return nil
	})
}
