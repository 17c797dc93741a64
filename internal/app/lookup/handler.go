package lookup

import (
	"context"
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
)

type productResolver interface {
	Resolve(ctx context.Context, rawURL string) (*product.Product, []string, error)
}

type Handler struct {
	resolver productResolver
	logger   *zap.SugaredLogger
}

type NewHandlerParams struct {
	fx.In

	Resolver *identity.Resolver
	Logger   *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	return &Handler{resolver: p.Resolver, logger: p.Logger}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Get("/api/products/lookup", h.Handle)
}

type lookupResponse struct {
	Found     bool   `json:"found"`
	ProductID string `json:"productId,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing url")
		return
	}

	p, _, err := h.resolver.Resolve(r.Context(), rawURL)
	if errors.Is(err, product.ErrNotFound) {
		render.ChiJSON(w, http.StatusOK, lookupResponse{Found: false, Message: "product is not tracked yet"})
		return
	}
	if err != nil {
		h.logger.Errorw("lookup_failed", "url", rawURL, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	render.ChiJSON(w, http.StatusOK, lookupResponse{Found: true, ProductID: p.ID.Hex()})
}

var _ router.Handler = (*Handler)(nil)
