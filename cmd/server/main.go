package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewplane/crewplane/modules"
	"github.com/crewplane/crewplane/modules/core/domain/entities/tenant"
	corepersistence "github.com/crewplane/crewplane/modules/core/infrastructure/persistence"
	superadminservices "github.com/crewplane/crewplane/modules/superadmin/services"
	"github.com/crewplane/crewplane/pkg/application"
	"github.com/crewplane/crewplane/pkg/composables"
	"github.com/crewplane/crewplane/pkg/configuration"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

const expirySweepInterval = time.Minute

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if err := app.Migrations().Up(context.Background()); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	if err := app.Seeder().Seed(context.Background(), app); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("engine started")
	runExpirySweep(runCtx, app)
	logger.Info("engine stopped")
}

// runExpirySweep closes overdue impersonation sessions across all tenants
// until the context is cancelled.
func runExpirySweep(ctx context.Context, app application.Application) {
	service := app.Service(superadminservices.ImpersonationService{}).(*superadminservices.ImpersonationService)
	tenants := corepersistence.NewTenantRepository()
	logger := app.Logger()

	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		poolCtx := composables.WithPool(ctx, app.DB())
		var all []*tenant.Tenant
		err := composables.InTx(poolCtx, func(txCtx context.Context) error {
			var innerErr error
			all, innerErr = tenants.List(txCtx)
			return innerErr
		})
		if err != nil {
			logger.WithError(err).Warn("expiry sweep: failed to list tenants")
			continue
		}
		for _, t := range all {
			tenantCtx := composables.WithTenantID(poolCtx, t.ID())
			ended, err := service.ExpireOverdue(tenantCtx)
			if err != nil {
				logger.WithError(err).
					WithField("tenant_id", t.ID()).
					Warn("expiry sweep: failed to expire sessions")
				continue
			}
			if ended > 0 {
				logger.WithField("tenant_id", t.ID()).
					WithField("count", ended).
					Info("expiry sweep: closed overdue impersonation sessions")
			}
		}
	}
}
