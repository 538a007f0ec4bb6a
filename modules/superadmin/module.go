package superadmin

import (
	"embed"

	corepersistence "github.com/crewplane/crewplane/modules/core/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/superadmin/infrastructure/persistence"
	"github.com/crewplane/crewplane/modules/superadmin/services"
	"github.com/crewplane/crewplane/pkg/application"
	"github.com/crewplane/crewplane/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "superadmin"
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	auditRepo := persistence.NewAuditLogRepository()

	app.RegisterServices(
		services.NewImpersonationService(
			persistence.NewSessionRepository(),
			corepersistence.NewUserRepository(),
			auditRepo,
			app.EventPublisher(),
			configuration.Use().ImpersonationMaxDuration,
		),
		services.NewAuditLogService(auditRepo),
	)

	return nil
}
