package logging

import (
	"embed"

	"github.com/crewplane/crewplane/modules/logging/handlers"
	"github.com/crewplane/crewplane/modules/logging/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/logging/services"
	"github.com/crewplane/crewplane/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "logging"
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)
	app.RegisterServices(
		services.NewLogsService(persistence.NewActionLogRepository()),
	)
	handlers.RegisterDomainEventHandlers(app)
	return nil
}
