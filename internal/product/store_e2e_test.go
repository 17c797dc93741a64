package product

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	appfx "pricetrail/internal/app/fx"
	storefx "pricetrail/store/fx"
)

func TestStore_UpsertByCanonicalURL_E2E_Mongo(t *testing.T) {
	if strings.TrimSpace(os.Getenv("MONGO_URI")) == "" {
		t.Skip("mongo is disabled; set MONGO_URI (+ MONGO_DB) to run this test")
	}

	var store *Store

	app := fx.New(
		appfx.CoreAppOptions,
		storefx.Module,
		fx.Provide(NewStore),
		fx.Populate(&store),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancelStart)
	require.NoError(t, app.Start(startCtx))
	t.Cleanup(func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		_ = app.Stop(stopCtx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	url := fmt.Sprintf("https://www.amazon.in/dp/B0TEST%04d", time.Now().UnixNano()%10000)
	now := time.Now().UTC().Truncate(time.Millisecond)

	first, err := store.UpsertByCanonicalURL(ctx, UpsertInput{
		URL: url,
		Product: Product{
			Title:        "test product",
			Currency:     "INR",
			CurrentPrice: 499,
			PriceHistory: []PricePoint{{Price: 499, ObservedAt: now}},
			LowestPrice:  499,
			HighestPrice: 499,
			AveragePrice: 499,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	})
	require.NoError(t, err)
	require.False(t, first.ID.IsZero())
	require.Equal(t, url, first.URL)
	require.Equal(t, AnalyticsIdle, first.Analytics.Status)

	// A second upsert for the same canonical URL merges into the same document.
	later := now.Add(time.Minute)
	second, err := store.UpsertByCanonicalURL(ctx, UpsertInput{
		URL: url,
		Product: Product{
			Title:        "test product",
			Currency:     "INR",
			CurrentPrice: 449,
			PriceHistory: append(first.PriceHistory, PricePoint{Price: 449, ObservedAt: later}),
			LowestPrice:  449,
			HighestPrice: 499,
			AveragePrice: 474,
			CreatedAt:    now,
			UpdatedAt:    later,
		},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, second.PriceHistory, 2)
	require.InDelta(t, 449, second.LowestPrice, 0.001)

	found, err := store.FindByAnyURL(ctx, []string{"https://other.example/x", url})
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)

	added, err := store.AddSubscriber(ctx, first.ID.Hex(), "e2e@example.com")
	require.NoError(t, err)
	require.True(t, added)

	again, err := store.AddSubscriber(ctx, first.ID.Hex(), "e2e@example.com")
	require.NoError(t, err)
	require.False(t, again)
}
