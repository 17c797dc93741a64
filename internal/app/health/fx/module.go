package fx

import (
	"go.uber.org/fx"

	"pricetrail/internal/app/health"
	"pricetrail/internal/router"
)

var Module = fx.Options(
	fx.Provide(router.AsRoute(health.NewHandler)),
)
