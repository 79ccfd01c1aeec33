package modules

import (
	"github.com/iota-uz/newsletter/modules/newsletter"
	"github.com/iota-uz/newsletter/pkg/application"
	"github.com/iota-uz/newsletter/pkg/configuration"
)

// BuiltInModules returns the modules every binary registers, configured from conf.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		newsletter.NewModule(&newsletter.ModuleOptions{Configuration: conf}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.Load(app, externalModules...)
}
