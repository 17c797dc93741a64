// Package report tracks the lifecycle of the per-product analytics report:
// trigger (idempotent), poll (with cross-location fallback lookups), and the
// external workflow callback.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
	"pricetrail/internal/product"
)

type productStore interface {
	FindByID(ctx context.Context, id string) (*product.Product, error)
	SetAnalyticsPending(ctx context.Context, id string, requestedAt time.Time) error
	SetAnalyticsComplete(ctx context.Context, id string, data any, completedAt time.Time) error
	SetAnalyticsFailed(ctx context.Context, id string, reason string, completedAt time.Time) error
}

type reportStore interface {
	FindByOwnID(ctx context.Context, productID string) (map[string]any, error)
	FindByProductIDField(ctx context.Context, productID string) (map[string]any, error)
	FindByProductURLField(ctx context.Context, productURL string) (map[string]any, error)
	UpsertForProduct(ctx context.Context, productID string, payload map[string]any) error
}

type TriggerResult struct {
	Status      string `json:"status"`
	Retriggered bool   `json:"retriggered"`
}

type PollResult struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

type CallbackInput struct {
	ProductID string         `json:"productId"`
	Status    string         `json:"status,omitempty"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type Machine struct {
	products      productStore
	reports       reportStore
	webhookURL    string
	callbackURL   string
	pendingWindow time.Duration
	client        *http.Client
	logger        *zap.SugaredLogger
	now           func() time.Time

	// dispatch is replaced in tests; the default posts to the webhook.
	dispatch func(p *product.Product) error
}

type NewMachineParams struct {
	fx.In

	Cfg      config.Config
	Products *product.Store
	Reports  *Store
	Logger   *zap.SugaredLogger
}

func NewMachine(p NewMachineParams) *Machine {
	m := &Machine{
		products:      p.Products,
		reports:       p.Reports,
		webhookURL:    p.Cfg.AnalyticsWebhookURL,
		callbackURL:   p.Cfg.AnalyticsCallbackURL,
		pendingWindow: p.Cfg.AnalyticsPendingWindow,
		client:        &http.Client{Timeout: 30 * time.Second},
		logger:        p.Logger,
		now:           time.Now,
	}
	m.dispatch = m.postWebhook
	return m
}

// Trigger starts (or re-uses) an analytics run for the product. Without force
// it is an idempotent no-op when a report already exists or a run is already
// pending within the freshness window. The webhook is dispatched detached: the
// caller's response does not wait on it.
func (m *Machine) Trigger(ctx context.Context, id string, force bool) (TriggerResult, error) {
	p, err := m.products.FindByID(ctx, id)
	if err != nil {
		return TriggerResult{}, err
	}

	if !force {
		if doc := m.findExisting(ctx, p); doc != nil {
			return TriggerResult{Status: product.AnalyticsComplete, Retriggered: false}, nil
		}
		if p.Analytics.Status == product.AnalyticsPending && p.Analytics.RequestedAt != nil &&
			m.now().Sub(*p.Analytics.RequestedAt) < m.pendingWindow {
			return TriggerResult{Status: product.AnalyticsPending, Retriggered: false}, nil
		}
	}

	// Poll-only deployment: the workflow is triggered through another path.
	if m.webhookURL == "" {
		return TriggerResult{Status: product.AnalyticsPending, Retriggered: false}, nil
	}

	if err := m.products.SetAnalyticsPending(ctx, id, m.now().UTC()); err != nil {
		return TriggerResult{}, err
	}

	go func() {
		if err := m.dispatch(p); err != nil {
			m.logger.Warnw("analytics_dispatch_failed", "product_id", id, "err", err)
			failCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if markErr := m.products.SetAnalyticsFailed(failCtx, id, err.Error(), m.now().UTC()); markErr != nil {
				m.logger.Errorw("analytics_mark_failed_failed", "product_id", id, "err", markErr)
			}
		}
	}()

	return TriggerResult{Status: product.AnalyticsPending, Retriggered: true}, nil
}

// Poll resolves the authoritative report for the product by precedence:
// a document stored under the product's own id (any known location and id
// shape), then a productId field match, then a productUrl field match, then
// the embedded sub-record.
func (m *Machine) Poll(ctx context.Context, id string) (PollResult, error) {
	p, err := m.products.FindByID(ctx, id)
	if err != nil {
		return PollResult{}, err
	}

	if doc := m.findExisting(ctx, p); doc != nil {
		return PollResult{Status: product.AnalyticsComplete, Data: doc}, nil
	}

	status := p.Analytics.Status
	if status == "" {
		status = product.AnalyticsIdle
	}
	return PollResult{Status: status, Data: p.Analytics.Data, Error: p.Analytics.Error}, nil
}

// ApplyCallback records the workflow's completion. A failed status or any
// error string marks the embedded sub-record failed; otherwise the payload is
// stored inline and mirrored into the dedicated report location.
func (m *Machine) ApplyCallback(ctx context.Context, in CallbackInput) error {
	now := m.now().UTC()

	if in.Status == product.AnalyticsFailed || in.Error != "" {
		reason := in.Error
		if reason == "" {
			reason = "analytics workflow reported failure"
		}
		return m.products.SetAnalyticsFailed(ctx, in.ProductID, reason, now)
	}

	payload := in.Data
	if nested, ok := payload["analytics_payload"].(map[string]any); ok {
		payload = nested
	}

	if err := m.products.SetAnalyticsComplete(ctx, in.ProductID, payload, now); err != nil {
		return err
	}
	if err := m.reports.UpsertForProduct(ctx, in.ProductID, payload); err != nil {
		// The embedded copy is already complete; the mirror is best-effort.
		m.logger.Warnw("report_mirror_upsert_failed", "product_id", in.ProductID, "err", err)
	}
	return nil
}

func (m *Machine) findExisting(ctx context.Context, p *product.Product) map[string]any {
	id := p.ID.Hex()

	if doc, err := m.reports.FindByOwnID(ctx, id); err == nil && doc != nil {
		return doc
	} else if err != nil {
		m.logger.Debugw("report_own_id_lookup_failed", "product_id", id, "err", err)
	}

	if doc, err := m.reports.FindByProductIDField(ctx, id); err == nil && doc != nil {
		return doc
	} else if err != nil {
		m.logger.Debugw("report_product_id_lookup_failed", "product_id", id, "err", err)
	}

	if doc, err := m.reports.FindByProductURLField(ctx, p.URL); err == nil && doc != nil {
		return doc
	} else if err != nil {
		m.logger.Debugw("report_product_url_lookup_failed", "product_id", id, "err", err)
	}

	return nil
}

func (m *Machine) postWebhook(p *product.Product) error {
	reqCtx, cancel := context.WithTimeout(context.Background(), m.client.Timeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{
		"productId":   p.ID.Hex(),
		"productUrl":  p.URL,
		"callbackUrl": m.callbackURL,
	})
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, m.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build analytics webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("analytics webhook returned status %d", resp.StatusCode)
	}
	return nil
}
