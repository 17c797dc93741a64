package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
)

const ProductsCollection = "products"

func NewMongoClient(lc fx.Lifecycle, cfg config.Config, log *zap.SugaredLogger) (*mongo.Client, error) {
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx, nil); err != nil {
				_ = client.Disconnect(context.Background())
				return fmt.Errorf("mongo ping failed: %w", err)
			}
			log.Infow("mongo connected", "db", cfg.MongoDB)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := client.Disconnect(ctx); err != nil {
				log.Warnw("mongo disconnect failed", "err", err)
			}
			return nil
		},
	})

	return client, nil
}

func NewDatabase(client *mongo.Client, cfg config.Config) *mongo.Database {
	return client.Database(cfg.MongoDB)
}

// EnsureIndexes creates the unique canonical-URL index on products. URL
// uniqueness at the store level is the only guard against two concurrent
// upserts creating sibling documents for the same item.
func EnsureIndexes(lc fx.Lifecycle, db *mongo.Database, log *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			idxCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()

			_, err := db.Collection(ProductsCollection).Indexes().CreateMany(idxCtx, []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "url", Value: 1}},
					Options: options.Index().SetUnique(true).SetName("uniq_url"),
				},
				{
					Keys:    bson.D{{Key: "updatedAt", Value: -1}},
					Options: options.Index().SetName("updated_at_desc"),
				},
			})
			if err != nil {
				return fmt.Errorf("ensure product indexes: %w", err)
			}
			log.Infow("mongo indexes ensured", "collection", ProductsCollection)
			return nil
		},
	})
}
