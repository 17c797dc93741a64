package fx

import (
	"go.uber.org/fx"

	"pricetrail/internal/product"
)

var Module = fx.Options(
	fx.Provide(product.NewStore),
)
