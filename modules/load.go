package modules

import (
	"github.com/gcir/gms/modules/proposals"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/configuration"
)

func BuiltInModules(conf *configuration.Configuration) ([]application.Module, error) {
	p, err := proposals.NewModuleFromConfig(conf)
	if err != nil {
		return nil, err
	}
	return []application.Module{p}, nil
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
