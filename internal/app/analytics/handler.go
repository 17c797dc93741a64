package analytics

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/internal/pkg/render"
	"pricetrail/internal/product"
	"pricetrail/internal/report"
	"pricetrail/internal/router"
)

type reportMachine interface {
	Trigger(ctx context.Context, id string, force bool) (report.TriggerResult, error)
	Poll(ctx context.Context, id string) (report.PollResult, error)
}

// Handler serves the per-product analytics status endpoints: GET polls the
// report through its fallback chain, POST triggers (or re-triggers) the
// external analytics workflow.
type Handler struct {
	machine reportMachine
	logger  *zap.SugaredLogger
}

type NewHandlerParams struct {
	fx.In

	Machine *report.Machine
	Logger  *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	return &Handler{machine: p.Machine, logger: p.Logger}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Get("/api/products/{id}/analytics", h.Handle)
	r.Post("/api/products/{id}/analytics", h.HandleTrigger)
}

type pollResponse struct {
	Analytics report.PollResult `json:"analytics"`
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing id")
		return
	}

	result, err := h.machine.Poll(r.Context(), id)
	if errors.Is(err, product.ErrNotFound) {
		render.ChiErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Errorw("analytics_poll_failed", "id", id, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to fetch analytics")
		return
	}

	render.ChiJSON(w, http.StatusOK, pollResponse{Analytics: result})
}

type triggerResponse struct {
	OK          bool   `json:"ok"`
	Status      string `json:"status"`
	Retriggered bool   `json:"retriggered"`
}

func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		render.ChiErr(w, http.StatusBadRequest, "missing id")
		return
	}
	force := r.URL.Query().Get("force") == "1"

	result, err := h.machine.Trigger(r.Context(), id, force)
	if errors.Is(err, product.ErrNotFound) {
		render.ChiErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Errorw("analytics_trigger_failed", "id", id, "err", err)
		render.ChiErr(w, http.StatusInternalServerError, "failed to trigger analytics")
		return
	}

	status := http.StatusOK
	if result.Status == product.AnalyticsPending {
		status = http.StatusAccepted
	}
	render.ChiJSON(w, status, triggerResponse{OK: true, Status: result.Status, Retriggered: result.Retriggered})
}

var _ router.Handler = (*Handler)(nil)
