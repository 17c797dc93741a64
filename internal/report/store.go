package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
)

// idStrategy produces a primary-key filter for one historical id encoding.
// The external workflow has written report keys as ObjectId, as a raw hex
// string, and as an embedded {"$oid": ...} document at different times.
type idStrategy struct {
	name   string
	filter func(hexID string) (bson.M, bool)
}

var idStrategies = []idStrategy{
	{
		name: "object_id",
		filter: func(hexID string) (bson.M, bool) {
			oid, err := primitive.ObjectIDFromHex(hexID)
			if err != nil {
				return nil, false
			}
			return bson.M{"_id": oid}, true
		},
	},
	{
		name: "string_id",
		filter: func(hexID string) (bson.M, bool) {
			return bson.M{"_id": hexID}, true
		},
	},
	{
		name: "embedded_oid",
		filter: func(hexID string) (bson.M, bool) {
			return bson.M{"_id": bson.M{"$oid": hexID}}, true
		},
	},
}

// Store reads analyzed reports from the ordered list of legacy storage
// locations. The list is data-driven so new legacy locations append through
// configuration rather than code changes.
type Store struct {
	db        *mongo.Database
	locations []string
	logger    *zap.SugaredLogger
}

type NewStoreParams struct {
	fx.In

	Cfg    config.Config
	DB     *mongo.Database
	Logger *zap.SugaredLogger
}

func NewStore(p NewStoreParams) *Store {
	return &Store{
		db:        p.DB,
		locations: p.Cfg.ReportCollections,
		logger:    p.Logger,
	}
}

// FindByOwnID probes every location with every id strategy, in priority
// order, for a report stored under the product's own id. First hit wins.
// Returns (nil, nil) when no location holds a matching document.
func (s *Store) FindByOwnID(ctx context.Context, productID string) (map[string]any, error) {
	for _, location := range s.locations {
		coll := s.db.Collection(location)
		for _, strategy := range idStrategies {
			filter, ok := strategy.filter(productID)
			if !ok {
				continue
			}

			var doc map[string]any
			err := coll.FindOne(ctx, filter).Decode(&doc)
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("probe report %s/%s: %w", location, strategy.name, err)
			}
			return doc, nil
		}
	}
	return nil, nil
}

// FindByProductIDField returns the newest report whose productId field equals
// the given id, in either hex-string or ObjectId form.
func (s *Store) FindByProductIDField(ctx context.Context, productID string) (map[string]any, error) {
	keys := []any{productID}
	if oid, err := primitive.ObjectIDFromHex(productID); err == nil {
		keys = append(keys, oid)
	}
	return s.findNewest(ctx, bson.M{"productId": bson.M{"$in": keys}})
}

// FindByProductURLField returns the newest report whose productUrl field
// equals the product's canonical URL.
func (s *Store) FindByProductURLField(ctx context.Context, productURL string) (map[string]any, error) {
	if productURL == "" {
		return nil, nil
	}
	return s.findNewest(ctx, bson.M{"productUrl": productURL})
}

func (s *Store) findNewest(ctx context.Context, filter bson.M) (map[string]any, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	for _, location := range s.locations {
		var doc map[string]any
		err := s.db.Collection(location).FindOne(ctx, filter, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find report in %s: %w", location, err)
		}
		return doc, nil
	}
	return nil, nil
}

// UpsertForProduct writes the callback payload into the primary report
// location keyed by productId.
func (s *Store) UpsertForProduct(ctx context.Context, productID string, payload map[string]any) error {
	if len(s.locations) == 0 {
		return fmt.Errorf("no report locations configured")
	}

	set := bson.M{
		"productId": productID,
		"updatedAt": time.Now().UTC(),
	}
	for k, v := range payload {
		if k == "_id" {
			continue
		}
		set[k] = v
	}

	_, err := s.db.Collection(s.locations[0]).UpdateOne(ctx,
		bson.M{"productId": productID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert report for %s: %w", productID, err)
	}
	return nil
}
