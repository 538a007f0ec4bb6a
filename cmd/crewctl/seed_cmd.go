package main

import (
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Provision baseline records (default tenant, system admin group)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cleanup, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return app.Seeder().Seed(cmd.Context(), app)
		},
	}
}
