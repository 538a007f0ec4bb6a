package staffing

import (
	"embed"

	corepersistence "github.com/crewplane/crewplane/modules/core/infrastructure/persistence"
	projectspersistence "github.com/crewplane/crewplane/modules/projects/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/staffing/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/staffing/services"
	"github.com/crewplane/crewplane/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "staffing"
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	assignmentService := services.NewAssignmentService(persistence.NewAssignmentRepository(), app.EventPublisher())

	app.RegisterServices(
		assignmentService,
		services.NewAssignmentRequestService(
			persistence.NewAssignmentRequestRepository(),
			assignmentService,
			projectspersistence.NewWbsElementRepository(),
			corepersistence.NewGroupRepository(),
			app.EventPublisher(),
		),
	)

	return nil
}
