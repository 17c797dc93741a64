package fx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
	appscrape "pricetrail/internal/app/scrape"
	"pricetrail/internal/router"
	"pricetrail/internal/scrape"
)

var Module = fx.Options(
	fx.Provide(
		scrape.NewTrigger,
		NewInflightMarker,
	),
	fx.Provide(
		router.AsRoute(appscrape.NewSyncHandler),
		router.AsRoute(appscrape.NewFireHandler),
	),
)

type inflightParams struct {
	fx.In

	Cfg    config.Config
	Redis  *redis.Client `optional:"true"`
	Logger *zap.SugaredLogger
}

func NewInflightMarker(p inflightParams) *scrape.InflightMarker {
	return scrape.NewInflightMarker(p.Redis, p.Cfg.InflightTTL, p.Logger)
}
