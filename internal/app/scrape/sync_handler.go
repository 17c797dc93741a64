package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/internal/identity"
	"pricetrail/internal/pkg/render"
	"pricetrail/internal/product"
	"pricetrail/internal/router"
	"pricetrail/internal/scrape"
)

type productResolver interface {
	Resolve(ctx context.Context, rawURL string) (*product.Product, []string, error)
}

type syncScraper interface {
	Sync(ctx context.Context, rawURL string) scrape.Outcome
}

// SyncHandler serves the blocking scrape endpoint: it waits on the external
// workflow (within the synchronous budget) and answers with a terminal
// complete/failed, or queued when the workflow outlives the wait.
type SyncHandler struct {
	resolver productResolver
	trigger  syncScraper
	logger   *zap.SugaredLogger
}

type NewSyncHandlerParams struct {
	fx.In

	Resolver *identity.Resolver
	Trigger  *scrape.Trigger
	Logger   *zap.SugaredLogger
}

func NewSyncHandler(p NewSyncHandlerParams) *SyncHandler {
	return &SyncHandler{resolver: p.Resolver, trigger: p.Trigger, logger: p.Logger}
}

func (h *SyncHandler) RegisterRoute(r *chi.Mux) {
	r.Post("/api/scrape", h.Handle)
}

type scrapeRequest struct {
	URL string `json:"url"`
}

func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := decodeScrapeRequest(w, r)
	if !ok {
		return
	}

	// Already tracked: do not fire the workflow again.
	if p, _, err := h.resolver.Resolve(r.Context(), rawURL); err == nil {
		render.ChiJSON(w, http.StatusOK, scrape.Outcome{Status: scrape.StatusComplete, ProductID: p.ID.Hex()})
		return
	} else if !errors.Is(err, product.ErrNotFound) {
		h.logger.Errorw("scrape_lookup_failed", "url", rawURL, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := h.trigger.Sync(r.Context(), rawURL)
	render.ChiJSON(w, statusCodeFor(out), out)
}

func decodeScrapeRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiErr(w, http.StatusBadRequest, "invalid json")
		return "", false
	}
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing url")
		return "", false
	}
	return rawURL, true
}

func statusCodeFor(out scrape.Outcome) int {
	switch out.Status {
	case scrape.StatusQueued:
		return http.StatusAccepted
	case scrape.StatusFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

var _ router.Handler = (*SyncHandler)(nil)
