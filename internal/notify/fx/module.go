package fx

import (
	"go.uber.org/fx"

	"pricetrail/internal/notify"
)

var Module = fx.Module(
	"notify",
	fx.Provide(
		notify.NewAMQP,
		notify.NewPublisher,
	),
)
