package analytics

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
	"pricetrail/internal/pkg/render"
	"pricetrail/internal/product"
	"pricetrail/internal/report"
	"pricetrail/internal/router"
)

// SecretHeader carries the shared secret the external workflow echoes back on
// its completion callback.
const SecretHeader = "x-n8n-secret"

type callbackApplier interface {
	ApplyCallback(ctx context.Context, in report.CallbackInput) error
}

// CallbackHandler receives the analytics workflow's completion callback and
// applies it to the product's embedded sub-record and the report store.
type CallbackHandler struct {
	machine callbackApplier
	secret  string
	logger  *zap.SugaredLogger
}

type NewCallbackHandlerParams struct {
	fx.In

	Cfg     config.Config
	Machine *report.Machine
	Logger  *zap.SugaredLogger
}

func NewCallbackHandler(p NewCallbackHandlerParams) *CallbackHandler {
	return &CallbackHandler{machine: p.Machine, secret: p.Cfg.AnalyticsSecret, logger: p.Logger}
}

func (h *CallbackHandler) RegisterRoute(r *chi.Mux) {
	r.Post("/api/products/report-callback", h.Handle)
}

func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			render.ChiErr(w, http.StatusUnauthorized, "invalid callback secret")
			return
		}
	}

	var in report.CallbackInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		render.ChiErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing productId")
		return
	}

	err := h.machine.ApplyCallback(r.Context(), in)
	if errors.Is(err, product.ErrNotFound) {
		render.ChiErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Errorw("report_callback_failed", "product_id", in.ProductID, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to apply callback")
		return
	}

	render.ChiJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

var _ router.Handler = (*CallbackHandler)(nil)
