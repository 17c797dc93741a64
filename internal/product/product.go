package product

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Analytics sub-record statuses. Transitions: idle -> pending -> complete|failed,
// with retrigger moving a terminal record back to pending.
const (
	AnalyticsIdle     = "idle"
	AnalyticsPending  = "pending"
	AnalyticsComplete = "complete"
	AnalyticsFailed   = "failed"
)

type PricePoint struct {
	Price      float64   `bson:"price" json:"price"`
	ObservedAt time.Time `bson:"observedAt" json:"observedAt"`
}

type Subscriber struct {
	Email string `bson:"email" json:"email"`
}

// AnalyticsRecord is the embedded per-product analytics state, mutated only by
// the report state machine (trigger and callback paths), via field-level updates.
type AnalyticsRecord struct {
	Status      string     `bson:"status" json:"status"`
	RequestedAt *time.Time `bson:"requestedAt,omitempty" json:"requestedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Error       string     `bson:"error,omitempty" json:"error,omitempty"`
	Data        any        `bson:"data,omitempty" json:"data,omitempty"`
}

// Product is one tracked item, keyed by its canonical URL.
type Product struct {
	ID  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	URL string             `bson:"url" json:"url"`

	Title       string `bson:"title,omitempty" json:"title,omitempty"`
	Image       string `bson:"image,omitempty" json:"image,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Category    string `bson:"category,omitempty" json:"category,omitempty"`
	ReviewCount int    `bson:"reviewCount,omitempty" json:"reviewCount,omitempty"`
	InStock     bool   `bson:"inStock" json:"inStock"`

	Currency      string       `bson:"currency,omitempty" json:"currency,omitempty"`
	CurrentPrice  float64      `bson:"currentPrice" json:"currentPrice"`
	OriginalPrice float64      `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	PriceHistory  []PricePoint `bson:"priceHistory,omitempty" json:"priceHistory,omitempty"`
	LowestPrice   float64      `bson:"lowestPrice,omitempty" json:"lowestPrice,omitempty"`
	HighestPrice  float64      `bson:"highestPrice,omitempty" json:"highestPrice,omitempty"`
	AveragePrice  float64      `bson:"averagePrice,omitempty" json:"averagePrice,omitempty"`

	Analytics   AnalyticsRecord `bson:"analytics" json:"analytics"`
	Subscribers []Subscriber    `bson:"subscribers,omitempty" json:"subscribers,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ScrapeFields is the subset of a scrape payload merged into a product.
type ScrapeFields struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ReviewCount int     `json:"reviewCount"`
	InStock     bool    `json:"inStock"`
	Currency    string  `json:"currency"`
	Price       float64 `json:"price"`
	ListPrice   float64 `json:"listPrice"`
}

// MergeScrape applies one scrape observation to the prior state of a product
// (nil for a first scrape) and returns the full next state. The price-history
// append and aggregate recompute happen here, before the store upsert; the
// store only persists the result.
func MergeScrape(prior *Product, in ScrapeFields, now time.Time) Product {
	var next Product
	if prior != nil {
		next = *prior
	}

	next.URL = in.URL
	if in.Title != "" {
		next.Title = in.Title
	}
	if in.Image != "" {
		next.Image = in.Image
	}
	if in.Description != "" {
		next.Description = in.Description
	}
	if in.Category != "" {
		next.Category = in.Category
	}
	if in.ReviewCount > 0 {
		next.ReviewCount = in.ReviewCount
	}
	if in.Currency != "" {
		next.Currency = in.Currency
	}
	next.InStock = in.InStock

	if in.Price > 0 {
		next.CurrentPrice = in.Price
		next.PriceHistory = append(next.PriceHistory, PricePoint{Price: in.Price, ObservedAt: now})
		next.LowestPrice, next.HighestPrice, next.AveragePrice = aggregates(next.PriceHistory)
	}

	// The original (pre-discount) price is set once on first observation.
	if next.OriginalPrice == 0 {
		if in.ListPrice > 0 {
			next.OriginalPrice = in.ListPrice
		} else if in.Price > 0 {
			next.OriginalPrice = in.Price
		}
	}

	if next.Analytics.Status == "" {
		next.Analytics.Status = AnalyticsIdle
	}

	next.UpdatedAt = now
	if prior == nil {
		next.CreatedAt = now
	}
	return next
}

// aggregates recomputes lowest/highest/average over the full history sequence.
func aggregates(history []PricePoint) (lowest, highest, average float64) {
	if len(history) == 0 {
		return 0, 0, 0
	}
	lowest = history[0].Price
	highest = history[0].Price
	var sum float64
	for _, p := range history {
		if p.Price < lowest {
			lowest = p.Price
		}
		if p.Price > highest {
			highest = p.Price
		}
		sum += p.Price
	}
	return lowest, highest, sum / float64(len(history))
}
