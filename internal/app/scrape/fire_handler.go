package scrape

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/internal/identity"
	"pricetrail/internal/pkg/render"
	"pricetrail/internal/product"
	"pricetrail/internal/router"
	"pricetrail/internal/scrape"
)

type fireScraper interface {
	FireAndReturn(ctx context.Context, rawURL string) scrape.Outcome
}

type inflight interface {
	Begin(ctx context.Context, key string) bool
	End(ctx context.Context, key string)
}

// FireHandler serves the short-wait scrape endpoint used by the search box:
// it answers within the fire-and-return budget and reports queued when the
// workflow is still running.
type FireHandler struct {
	resolver productResolver
	trigger  fireScraper
	marker   inflight
	logger   *zap.SugaredLogger
}

type NewFireHandlerParams struct {
	fx.In

	Resolver *identity.Resolver
	Trigger  *scrape.Trigger
	Marker   *scrape.InflightMarker
	Logger   *zap.SugaredLogger
}

func NewFireHandler(p NewFireHandlerParams) *FireHandler {
	return &FireHandler{resolver: p.Resolver, trigger: p.Trigger, marker: p.Marker, logger: p.Logger}
}

func (h *FireHandler) RegisterRoute(r *chi.Mux) {
	r.Post("/api/products/scrape", h.Handle)
}

func (h *FireHandler) Handle(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeScrapeRequest(w, r)
	if !ok {
		return
	}

	p, _, err := h.resolver.Resolve(r.Context(), rawURL)
	if err == nil {
		render.ChiJSON(w, http.StatusOK, scrape.Outcome{Status: scrape.StatusComplete, ProductID: p.ID.Hex()})
		return
	}
	if !errors.Is(err, product.ErrNotFound) {
		h.logger.Errorw("scrape_lookup_failed", "url", rawURL, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	// Keyed on the canonical form so two spellings of the same untracked
	// product share one in-flight slot.
	inflightKey := scrape.CanonicalKey(rawURL)
	if !h.marker.Begin(r.Context(), inflightKey) {
		render.ChiJSON(w, http.StatusAccepted, scrape.Outcome{
			Status:  scrape.StatusQueued,
			Message: "scrape already in progress; check back shortly",
		})
		return
	}

	out := h.trigger.FireAndReturn(r.Context(), rawURL)
	if out.Status == scrape.StatusFailed {
		// Free the slot so the user can retry immediately.
		h.marker.End(r.Context(), inflightKey)
	}
	render.ChiJSON(w, statusCodeFor(out), out)
}

var _ router.Handler = (*FireHandler)(nil)
