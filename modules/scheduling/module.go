package scheduling

import (
	"embed"

	"github.com/crewplane/crewplane/modules/scheduling/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/scheduling/services"
	"github.com/crewplane/crewplane/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "scheduling"
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	app.RegisterServices(
		services.NewBookingService(persistence.NewBookingRepository(), app.EventPublisher()),
	)

	return nil
}
