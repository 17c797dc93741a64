// Package scrape invokes the external scraping workflow and normalizes its
// response shapes into complete / queued / failed outcomes.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
	"pricetrail/internal/notify"
	"pricetrail/internal/product"
	"pricetrail/internal/urlkey"
)

const (
	StatusComplete = "complete"
	StatusQueued   = "queued"
	StatusFailed   = "failed"
)

// Outcome is the client-visible result of one trigger invocation.
type Outcome struct {
	Status    string `json:"status"`
	ProductID string `json:"productId,omitempty"`
	Message   string `json:"message,omitempty"`
}

type productStore interface {
	FindByAnyURL(ctx context.Context, candidates []string) (*product.Product, error)
	UpsertByCanonicalURL(ctx context.Context, in product.UpsertInput) (*product.Product, error)
}

type Trigger struct {
	webhookURL string
	cfg        config.Config
	client     *http.Client
	products   productStore
	events     *notify.Publisher
	logger     *zap.SugaredLogger
	now        func() time.Time
}

type NewTriggerParams struct {
	fx.In

	Cfg      config.Config
	Products *product.Store
	Events   *notify.Publisher
	Logger   *zap.SugaredLogger
}

func NewTrigger(p NewTriggerParams) *Trigger {
	return &Trigger{
		webhookURL: p.Cfg.ScrapeWebhookURL,
		cfg:        p.Cfg,
		client:     &http.Client{},
		products:   p.Products,
		events:     p.Events,
		logger:     p.Logger,
		now:        time.Now,
	}
}

// Sync posts the URL to the workflow and waits for the full response, up to
// the synchronous budget. A structured payload is merged into the store; an
// empty 2xx means the workflow persists the product itself, so the store is
// polled for the canonical candidates before giving up with queued.
func (t *Trigger) Sync(ctx context.Context, rawURL string) Outcome {
	body, status, err := t.post(ctx, rawURL, t.cfg.ScrapeSyncTimeout)
	if err != nil {
		return Outcome{Status: StatusFailed, Message: err.Error()}
	}
	if status < 200 || status > 299 {
		return Outcome{Status: StatusFailed, Message: failureMessage(body, status)}
	}

	var fields product.ScrapeFields
	if jsonErr := json.Unmarshal(body, &fields); jsonErr == nil && strings.TrimSpace(fields.URL) != "" {
		return t.merge(ctx, fields)
	}

	// Shapeless 2xx: the workflow writes the product out-of-band.
	candidates := urlkey.Candidates(rawURL)
	for i := 0; i < t.cfg.ScrapePollTries; i++ {
		if p, findErr := t.products.FindByAnyURL(ctx, candidates); findErr == nil {
			return Outcome{Status: StatusComplete, ProductID: p.ID.Hex()}
		}
		select {
		case <-ctx.Done():
			return Outcome{Status: StatusQueued, Message: "scrape accepted; check back shortly"}
		case <-time.After(t.cfg.ScrapePollEvery):
		}
	}
	return Outcome{Status: StatusQueued, Message: "scrape accepted; check back shortly"}
}

// FireAndReturn posts the URL with a short budget. A response carrying a
// product identifier completes immediately; a response without one, or a bare
// timeout, is queued. A timeout is evidence the workflow is still running, not
// that it is broken. Any other transport error fails.
func (t *Trigger) FireAndReturn(ctx context.Context, rawURL string) Outcome {
	body, status, err := t.post(ctx, rawURL, t.cfg.ScrapeFireTimeout)
	if err != nil {
		if isTimeout(err) {
			return Outcome{Status: StatusQueued, Message: "scrape running; check back shortly"}
		}
		return Outcome{Status: StatusFailed, Message: err.Error()}
	}
	if status < 200 || status > 299 {
		return Outcome{Status: StatusFailed, Message: failureMessage(body, status)}
	}

	if id := ExtractProductID(body); id != "" {
		return Outcome{Status: StatusComplete, ProductID: id}
	}
	return Outcome{Status: StatusQueued, Message: "scrape running; check back shortly"}
}

func (t *Trigger) merge(ctx context.Context, fields product.ScrapeFields) Outcome {
	now := t.now().UTC()
	canonical := CanonicalKey(fields.URL)

	prior, err := t.products.FindByAnyURL(ctx, urlkey.Candidates(fields.URL))
	if err != nil && !errors.Is(err, product.ErrNotFound) {
		t.logger.Errorw("scrape_prior_lookup_failed", "url", canonical, "err", err)
		return Outcome{Status: StatusFailed, Message: "failed to persist scraped product"}
	}
	if prior != nil {
		canonical = prior.URL
	}

	merged := product.MergeScrape(prior, fields, now)
	stored, err := t.products.UpsertByCanonicalURL(ctx, product.UpsertInput{URL: canonical, Product: merged})
	if err != nil {
		t.logger.Errorw("scrape_upsert_failed", "url", canonical, "err", err)
		return Outcome{Status: StatusFailed, Message: "failed to persist scraped product"}
	}

	if t.events != nil {
		t.events.ProductScraped(ctx, notify.ProductScrapedEvent{
			ProductID:    stored.ID.Hex(),
			URL:          stored.URL,
			Title:        stored.Title,
			CurrentPrice: stored.CurrentPrice,
			LowestPrice:  stored.LowestPrice,
			FirstScrape:  prior == nil,
		})
	}

	return Outcome{Status: StatusComplete, ProductID: stored.ID.Hex()}
}

func (t *Trigger) post(ctx context.Context, rawURL string, budget time.Duration) ([]byte, int, error) {
	if strings.TrimSpace(t.webhookURL) == "" {
		return nil, 0, fmt.Errorf("scrape webhook is not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{"url": rawURL})
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// CanonicalKey picks the preferred key for a product URL: the synthesized
// merchant form when the URL carries a product identifier, else the
// query-stripped variant, else the raw URL itself. Different spellings of the
// same merchant product converge on one key, which is what makes it usable
// for both storage and in-flight dedup.
func CanonicalKey(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	if u, err := url.Parse(trimmed); err == nil && urlkey.IsMerchantHost(u.Hostname()) {
		if asin := urlkey.ExtractASIN(u.Path); asin != "" {
			bare := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
			return "https://www." + bare + "/dp/" + asin
		}
	}

	candidates := urlkey.Candidates(trimmed)
	if len(candidates) == 0 {
		return trimmed
	}
	return candidates[len(candidates)-1]
}

func failureMessage(body []byte, status int) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" || !isPrintable(msg) {
		return fmt.Sprintf("webhook returned status %d", status)
	}
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
