package modules

import (
	"github.com/crewplane/crewplane/modules/core"
	"github.com/crewplane/crewplane/modules/logging"
	"github.com/crewplane/crewplane/modules/projects"
	"github.com/crewplane/crewplane/modules/scheduling"
	"github.com/crewplane/crewplane/modules/staffing"
	"github.com/crewplane/crewplane/modules/superadmin"
	"github.com/crewplane/crewplane/pkg/application"
)

// BuiltInModules is ordered by dependency: core first, logging last so
// its event handlers can resolve every other module's services.
var BuiltInModules = []application.Module{
	core.NewModule(),
	scheduling.NewModule(),
	projects.NewModule(),
	staffing.NewModule(),
	superadmin.NewModule(),
	logging.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
