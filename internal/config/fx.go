package config

import "go.uber.org/fx"

// Module provides application and ordering configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewOrderingConfigHolder,
	),
)
