package config

import "go.uber.org/fx"

// Module registers the config provider.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
