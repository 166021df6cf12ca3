package modules

import (
	"github.com/iota-uz/kanban/modules/kanban"
	"github.com/iota-uz/kanban/pkg/application"
)

// BuiltInModules builds the modules the server and CLI load, configured from opts.
func BuiltInModules(opts *kanban.ModuleOptions) []application.Module {
	return []application.Module{
		kanban.NewModule(opts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
