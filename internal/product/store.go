package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/store"
)

var ErrNotFound = errors.New("product not found")

type Store struct {
	coll      *mongo.Collection
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

type NewStoreParams struct {
	fx.In

	DB     *mongo.Database
	Logger *zap.SugaredLogger
}

func NewStore(p NewStoreParams) *Store {
	return &Store{
		coll:      p.DB.Collection(store.ProductsCollection),
		logger:    p.Logger,
		validator: validator.New(),
	}
}

// FindByAnyURL returns the product whose canonical URL equals any candidate.
// The unique index means at most one should exist; the most recently updated
// wins if legacy duplicates are present.
func (s *Store) FindByAnyURL(ctx context.Context, candidates []string) (*Product, error) {
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	var p Product
	err := s.coll.FindOne(ctx, bson.M{"url": bson.M{"$in": candidates}}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product by url: %w", err)
	}
	return &p, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var p Product
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	return &p, nil
}

type UpsertInput struct {
	URL     string `validate:"required,url"`
	Product Product
}

// UpsertByCanonicalURL inserts or merges a product keyed solely on its
// canonical URL and returns the stored document. The unique index on url makes
// a concurrent second upsert merge into the first rather than create a sibling.
func (s *Store) UpsertByCanonicalURL(ctx context.Context, in UpsertInput) (*Product, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("validate upsert input: %w", err)
	}

	set := bson.M{
		"title":        in.Product.Title,
		"image":        in.Product.Image,
		"description":  in.Product.Description,
		"category":     in.Product.Category,
		"reviewCount":  in.Product.ReviewCount,
		"inStock":      in.Product.InStock,
		"currency":     in.Product.Currency,
		"currentPrice": in.Product.CurrentPrice,
		"priceHistory": in.Product.PriceHistory,
		"lowestPrice":  in.Product.LowestPrice,
		"highestPrice": in.Product.HighestPrice,
		"averagePrice": in.Product.AveragePrice,
		"updatedAt":    in.Product.UpdatedAt,
	}
	if in.Product.OriginalPrice > 0 {
		set["originalPrice"] = in.Product.OriginalPrice
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"url":       in.URL,
			"createdAt": in.Product.CreatedAt,
			"analytics": bson.M{"status": AnalyticsIdle},
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var p Product
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"url": in.URL}, update, opts).Decode(&p); err != nil {
		return nil, fmt.Errorf("upsert product %q: %w", in.URL, err)
	}

	s.logger.Infow("product_upserted", "id", p.ID.Hex(), "url", in.URL)
	return &p, nil
}

// SetAnalyticsPending marks the embedded analytics sub-record pending. Only
// the analytics.* fields are touched so unrelated writes (price-history
// appends) do not race with status transitions.
func (s *Store) SetAnalyticsPending(ctx context.Context, id string, requestedAt time.Time) error {
	return s.patchAnalytics(ctx, id, bson.M{
		"analytics.status":      AnalyticsPending,
		"analytics.requestedAt": requestedAt,
		"analytics.completedAt": nil,
		"analytics.error":       nil,
	})
}

func (s *Store) SetAnalyticsComplete(ctx context.Context, id string, data any, completedAt time.Time) error {
	return s.patchAnalytics(ctx, id, bson.M{
		"analytics.status":      AnalyticsComplete,
		"analytics.completedAt": completedAt,
		"analytics.error":       nil,
		"analytics.data":        data,
	})
}

func (s *Store) SetAnalyticsFailed(ctx context.Context, id string, reason string, completedAt time.Time) error {
	return s.patchAnalytics(ctx, id, bson.M{
		"analytics.status":      AnalyticsFailed,
		"analytics.completedAt": completedAt,
		"analytics.error":       reason,
	})
}

func (s *Store) patchAnalytics(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update analytics sub-record: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSubscriber adds an email to the product's subscriber set and reports
// whether it was newly added (first add triggers the welcome email side-effect
// owned by the notification collaborator).
func (s *Store) AddSubscriber(ctx context.Context, id string, email string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, ErrNotFound
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"subscribers": Subscriber{Email: email}}},
	)
	if err != nil {
		return false, fmt.Errorf("add subscriber: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount > 0, nil
}
