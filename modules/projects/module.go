package projects

import (
	"embed"

	"github.com/crewplane/crewplane/modules/projects/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/projects/services"
	"github.com/crewplane/crewplane/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "projects"
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	projectRepo := persistence.NewProjectRepository()
	wbsRepo := persistence.NewWbsElementRepository()

	app.RegisterServices(
		services.NewProjectService(projectRepo, app.EventPublisher()),
		services.NewWbsElementService(wbsRepo, projectRepo, app.EventPublisher()),
	)

	return nil
}
