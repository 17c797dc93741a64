// Package identity resolves raw product URLs to stored products. It combines
// the pure candidate expansion from urlkey with a store lookup and, for the
// allowlisted short-link host only, a best-effort redirect resolution retry.
package identity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"pricetrail/config"
	"pricetrail/internal/product"
	"pricetrail/internal/urlkey"
)

type productFinder interface {
	FindByAnyURL(ctx context.Context, candidates []string) (*product.Product, error)
}

type Resolver struct {
	store         productFinder
	client        *http.Client
	shortlinkHost string
	logger        *zap.SugaredLogger
}

type NewResolverParams struct {
	fx.In

	Cfg    config.Config
	Store  *product.Store
	Logger *zap.SugaredLogger
}

func NewResolver(p NewResolverParams) *Resolver {
	return &Resolver{
		store:         p.Store,
		client:        &http.Client{Timeout: p.Cfg.ShortlinkTimeout},
		shortlinkHost: p.Cfg.ShortlinkHost,
		logger:        p.Logger,
	}
}

// Resolve looks up rawURL against the store through its candidate set. On a
// miss for a short-link host it follows the redirect once, merges the resolved
// candidates, and retries the lookup. Returns the candidates actually used so
// callers can reuse them (scrape-trigger idempotency checks, upsert keys).
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*product.Product, []string, error) {
	candidates := urlkey.Candidates(rawURL)
	if len(candidates) == 0 {
		return nil, nil, product.ErrNotFound
	}

	p, err := r.store.FindByAnyURL(ctx, candidates)
	if err == nil {
		return p, candidates, nil
	}
	if !errors.Is(err, product.ErrNotFound) {
		return nil, candidates, err
	}

	resolved := r.resolveShortlink(ctx, rawURL)
	if resolved == "" || resolved == rawURL {
		return nil, candidates, product.ErrNotFound
	}

	candidates = mergeCandidates(candidates, urlkey.Candidates(resolved))
	p, err = r.store.FindByAnyURL(ctx, candidates)
	if err != nil {
		return nil, candidates, err
	}
	return p, candidates, nil
}

// resolveShortlink follows redirects for the allowlisted shortener host and
// returns the final URL, or "" when resolution is skipped or fails. Errors are
// swallowed: this step must never fail the overall lookup.
func (r *Resolver) resolveShortlink(ctx context.Context, rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !urlkey.IsShortlinkHost(u.Hostname(), r.shortlinkHost) {
		return ""
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debugw("shortlink_resolve_failed", "url", rawURL, "err", err)
		return ""
	}
	defer resp.Body.Close()
	// Drain a little so the connection can be reused, but never download the page.
	_, _ = io.CopyN(io.Discard, resp.Body, 1024)

	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	final := resp.Request.URL.String()
	r.logger.Debugw("shortlink_resolved", "from", rawURL, "to", final)
	return final
}

func mergeCandidates(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
