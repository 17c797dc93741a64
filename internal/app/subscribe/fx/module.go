package fx

import (
	"go.uber.org/fx"

	"pricetrail/internal/app/subscribe"
	"pricetrail/internal/router"
)

var Module = fx.Options(
	fx.Provide(
		router.AsRoute(subscribe.NewHandler),
	),
)
