package fx

import (
	"go.uber.org/fx"

	"pricetrail/internal/app/lookup"
	"pricetrail/internal/identity"
	"pricetrail/internal/router"
)

var Module = fx.Options(
	fx.Provide(identity.NewResolver),
	fx.Provide(router.AsRoute(lookup.NewHandler)),
)
