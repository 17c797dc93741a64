package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"

	"pricetrail/internal/product"
)

type finderFunc func(ctx context.Context, candidates []string) (*product.Product, error)

func (f finderFunc) FindByAnyURL(ctx context.Context, candidates []string) (*product.Product, error) {
	return f(ctx, candidates)
}

func newTestResolver(store productFinder, shortlinkHost string) *Resolver {
	return &Resolver{
		store:         store,
		client:        &http.Client{Timeout: 2 * time.Second},
		shortlinkHost: shortlinkHost,
		logger:        zap.NewNop().Sugar(),
	}
}

func TestResolve_DirectHit(t *testing.T) {
	t.Parallel()

	want := &product.Product{URL: "https://example.com/p"}
	r := newTestResolver(finderFunc(func(_ context.Context, candidates []string) (*product.Product, error) {
		if len(candidates) == 0 || candidates[0] != "https://example.com/p" {
			t.Fatalf("unexpected candidates %v", candidates)
		}
		return want, nil
	}), "amzn.to")

	got, candidates, err := r.Resolve(context.Background(), "https://example.com/p")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != want {
		t.Fatalf("got %v", got)
	}
	if len(candidates) == 0 {
		t.Fatal("expected candidates returned")
	}
}

func TestResolve_MissWithoutShortlinkDoesNotFetch(t *testing.T) {
	t.Parallel()

	calls := 0
	r := newTestResolver(finderFunc(func(context.Context, []string) (*product.Product, error) {
		calls++
		return nil, product.ErrNotFound
	}), "amzn.to")

	_, _, err := r.Resolve(context.Background(), "https://example.com/p")
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if calls != 1 {
		t.Fatalf("store lookups = %d, want 1 (no shortlink retry for non-allowlisted host)", calls)
	}
}

func TestResolve_ShortlinkFallbackRetriesLookup(t *testing.T) {
	t.Parallel()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(target.Close)
	targetURL := target.URL + "/product/long-form"

	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, targetURL, http.StatusFound)
	}))
	t.Cleanup(shortener.Close)

	shortHost := mustHost(t, shortener.URL)

	want := &product.Product{URL: targetURL}
	calls := 0
	r := newTestResolver(finderFunc(func(_ context.Context, candidates []string) (*product.Product, error) {
		calls++
		if calls == 1 {
			return nil, product.ErrNotFound
		}
		for _, c := range candidates {
			if c == targetURL {
				return want, nil
			}
		}
		return nil, product.ErrNotFound
	}), shortHost)

	got, candidates, err := r.Resolve(context.Background(), shortener.URL+"/abc123")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != want {
		t.Fatalf("got %v, want resolved product", got)
	}
	if calls != 2 {
		t.Fatalf("store lookups = %d, want 2", calls)
	}
	if candidates[0] != shortener.URL+"/abc123" {
		t.Fatalf("original candidate must stay first, got %v", candidates[0])
	}
}

func TestResolve_ShortlinkErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	shortener := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	shortHost := mustHost(t, shortener.URL)
	shortener.Close() // force a network error on resolution

	r := newTestResolver(finderFunc(func(context.Context, []string) (*product.Product, error) {
		return nil, product.ErrNotFound
	}), shortHost)

	_, _, err := r.Resolve(context.Background(), "http://"+shortHost+"/abc")
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound (resolution failure must not surface)", err)
	}
}

func TestResolve_EmptyInput(t *testing.T) {
	t.Parallel()

	r := newTestResolver(finderFunc(func(context.Context, []string) (*product.Product, error) {
		t.Fatal("store must not be consulted for empty input")
		return nil, nil
	}), "amzn.to")

	_, _, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func mustHost(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u.Hostname()
}
