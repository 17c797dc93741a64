package subscribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pricetrail/internal/product"
)

type fakeSubscribers struct {
	added   bool
	err     error
	calls   int
	lastID  string
	lastVal string
}

func (f *fakeSubscribers) AddSubscriber(_ context.Context, id string, email string) (bool, error) {
	f.calls++
	f.lastID = id
	f.lastVal = email
	return f.added, f.err
}

func serveSubscribe(store *fakeSubscribers, target, body string) *httptest.ResponseRecorder {
	h := &Handler{
		products:  store,
		validator: validator.New(),
		logger:    zap.NewNop().Sugar(),
	}
	mux := chi.NewMux()
	h.RegisterRoute(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rec
}

func TestSubscribeFirstAdd(t *testing.T) {
	t.Parallel()

	store := &fakeSubscribers{added: true}
	rec := serveSubscribe(store, "/api/products/6543ab/subscribe", `{"email":"Dana@Example.COM"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body subscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || !body.Subscribed {
		t.Fatalf("unexpected body: %+v", body)
	}
	if store.lastVal != "dana@example.com" {
		t.Fatalf("email = %q, want lowercased", store.lastVal)
	}
}

func TestSubscribeRepeatAddIsIdempotent(t *testing.T) {
	t.Parallel()

	store := &fakeSubscribers{added: false}
	rec := serveSubscribe(store, "/api/products/6543ab/subscribe", `{"email":"dana@example.com"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body subscribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Subscribed {
		t.Fatalf("repeat add should report subscribed=false: %+v", body)
	}
}

func TestSubscribeInvalidEmail(t *testing.T) {
	t.Parallel()

	store := &fakeSubscribers{}
	rec := serveSubscribe(store, "/api/products/6543ab/subscribe", `{"email":"not-an-email"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if store.calls != 0 {
		t.Fatal("invalid email must not reach the store")
	}
}

func TestSubscribeUnknownProduct(t *testing.T) {
	t.Parallel()

	store := &fakeSubscribers{err: product.ErrNotFound}
	rec := serveSubscribe(store, "/api/products/deadbeef/subscribe", `{"email":"dana@example.com"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
