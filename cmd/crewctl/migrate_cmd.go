package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/crewplane/crewplane/modules"
	"github.com/crewplane/crewplane/pkg/application"
	"github.com/crewplane/crewplane/pkg/configuration"
	"github.com/crewplane/crewplane/pkg/eventbus"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return app.Migrations().Up(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print migration status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return app.Migrations().Status(cmd.Context())
		},
	})
	return cmd
}

func loadApp(ctx context.Context) (application.Application, func(), error) {
	conf := configuration.Use()

	connCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(connCtx, conf.Database.Opts)
	if err != nil {
		return nil, nil, err
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(conf.Logger()),
		Logger:   conf.Logger(),
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return app, pool.Close, nil
}
