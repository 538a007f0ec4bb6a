package core

import (
	"embed"

	"github.com/crewplane/crewplane/modules/core/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/core/seed"
	"github.com/crewplane/crewplane/modules/core/services"
	"github.com/crewplane/crewplane/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "core"
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	tenantRepo := persistence.NewTenantRepository()
	userRepo := persistence.NewUserRepository()
	groupRepo := persistence.NewGroupRepository()
	archiveRepo := persistence.NewArchiveRepository()

	app.RegisterServices(
		services.NewTenantService(tenantRepo, app.EventPublisher()),
		services.NewUserService(userRepo, app.EventPublisher()),
		services.NewGroupService(groupRepo, app.EventPublisher()),
		services.NewLifecycleService(archiveRepo, app.EventPublisher()),
	)

	app.Seeder().Register(
		seed.DefaultTenant,
		seed.SystemAdminGroup,
	)

	return nil
}
