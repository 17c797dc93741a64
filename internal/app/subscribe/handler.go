package subscribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/internal/notify"
	"pricetrail/internal/pkg/render"
	"pricetrail/internal/product"
	"pricetrail/internal/router"
)

type subscriberStore interface {
	AddSubscriber(ctx context.Context, id string, email string) (bool, error)
}

// Handler adds a price-alert subscriber to a tracked product. The welcome
// email itself is owned by the notification collaborator; this endpoint only
// records the subscriber and announces first-time adds.
type Handler struct {
	products  subscriberStore
	events    *notify.Publisher
	validator *validator.Validate
	logger    *zap.SugaredLogger
}

type NewHandlerParams struct {
	fx.In

	Products *product.Store
	Events   *notify.Publisher
	Logger   *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	return &Handler{
		products:  p.Products,
		events:    p.Events,
		validator: validator.New(),
		logger:    p.Logger,
	}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Post("/api/products/{id}/subscribe", h.Handle)
}

type subscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type subscribeResponse struct {
	OK         bool `json:"ok"`
	Subscribed bool `json:"subscribed"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing id")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.ChiErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validator.Struct(req); err != nil {
		render.ChiErr(w, http.StatusBadRequest, "invalid email")
		return
	}

	added, err := h.products.AddSubscriber(r.Context(), id, req.Email)
	if errors.Is(err, product.ErrNotFound) {
		render.ChiErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Errorw("subscribe_failed", "id", id, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	if added && h.events != nil {
		h.events.ProductSubscribed(r.Context(), notify.ProductSubscribedEvent{
			ProductID: id,
			Email:     req.Email,
		})
	}

	render.ChiJSON(w, http.StatusOK, subscribeResponse{OK: true, Subscribed: added})
}

var _ router.Handler = (*Handler)(nil)
