package fx

import (
	"go.uber.org/fx"

	"pricetrail/internal/app/analytics"
	"pricetrail/internal/report"
	"pricetrail/internal/router"
)

var Module = fx.Options(
	fx.Provide(
		report.NewStore,
		report.NewMachine,
	),
	fx.Provide(
		router.AsRoute(analytics.NewHandler),
		router.AsRoute(analytics.NewCallbackHandler),
	),
)
