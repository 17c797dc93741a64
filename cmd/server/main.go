package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	cachefx "pricetrail/cache/fx"
	analyticsfx "pricetrail/internal/app/analytics/fx"
	appfx "pricetrail/internal/app/fx"
	healthfx "pricetrail/internal/app/health/fx"
	lookupfx "pricetrail/internal/app/lookup/fx"
	scrapefx "pricetrail/internal/app/scrape/fx"
	subscribefx "pricetrail/internal/app/subscribe/fx"
	notifyfx "pricetrail/internal/notify/fx"
	productfx "pricetrail/internal/product/fx"
	routerfx "pricetrail/internal/router/fx"
	serverfx "pricetrail/internal/server/fx"
	storefx "pricetrail/store/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.CoreAppOptions,
		storefx.Module,
		cachefx.Module,
		notifyfx.Module,
		productfx.Module,
		routerfx.CoreRouterOptions,
		serverfx.Module,
		healthfx.Module,
		lookupfx.Module,
		scrapefx.Module,
		subscribefx.Module,
		analyticsfx.Module,
	)

	app.Run()
}
