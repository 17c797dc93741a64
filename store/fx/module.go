package fx

import (
	"go.uber.org/fx"

	"pricetrail/store"
)

var Module = fx.Module(
	"mongo",
	fx.Provide(
		store.NewMongoClient,
		store.NewDatabase,
	),
	fx.Invoke(store.EnsureIndexes),
)
