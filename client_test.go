package go_storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/merchkit/go-storefront/cart"
	"github.com/merchkit/go-storefront/catalog"
	"github.com/merchkit/go-storefront/checkout"
	"github.com/merchkit/go-storefront/consts"
)

func newTestClient(t *testing.T, handler http.Handler) (Storefront, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(
		WithBaseURL(ts.URL),
		WithAccessToken("test-token"),
		WithHTTPClient(ts.Client()),
		WithLogger(nil),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, ts
}

func TestCartCreateSendsBearerAndDecodes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want Bearer test-token", got)
		}
		if r.URL.Path != consts.CartCreatePath {
			t.Errorf("path = %q, want %q", r.URL.Path, consts.CartCreatePath)
		}
		_, _ = w.Write([]byte(`{"cart":{"id":"cart-1","currency_code":"USD","lines":[{"id":"line-1","variant_id":"v-1","quantity":2}]}}`))
	}))

	resp, err := client.Cart().Create(context.Background(), &cart.CreateRequest{
		Currency: "USD",
		Lines:    []cart.LineInput{{VariantID: "v-1", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Cart == nil || resp.Cart.ID != "cart-1" {
		t.Fatalf("cart = %+v, want id cart-1", resp.Cart)
	}
	if len(resp.Cart.Lines) != 1 || resp.Cart.Lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v", resp.Cart.Lines)
	}
}

func TestCartValidationBlocksRemoteCall(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.Cart().Create(context.Background(), &cart.CreateRequest{
		Lines: []cart.LineInput{{VariantID: "", Quantity: 0}},
	})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ve *ValidationError
	errors.As(err, &ve)
	if len(ve.Fields) != 3 {
		t.Fatalf("expected currency, variant and quantity errors, got %v", ve.Fields)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("invalid request reached the server (%d calls)", got)
	}
}

func TestCartGetNullCartIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cart":null}`))
	}))

	resp, err := client.Cart().Get(context.Background(), &cart.GetRequest{CartID: "gone", Currency: "USD"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Cart != nil {
		t.Fatalf("cart = %+v, want nil", resp.Cart)
	}
}

func TestCartUserErrorsSurfaceInResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cart":null,"user_errors":[{"message":"cart not found","code":"CART_NOT_FOUND"}]}`))
	}))

	resp, err := client.Cart().AddLines(context.Background(), &cart.AddLinesRequest{
		CartID:   "gone",
		Currency: "USD",
		Lines:    []cart.LineInput{{VariantID: "v-1", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("business failures must not be transport errors: %v", err)
	}
	if len(resp.UserErrors) != 1 || resp.UserErrors[0].Code != consts.CodeCartNotFound {
		t.Fatalf("user errors = %+v", resp.UserErrors)
	}
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no such cart"}`, http.StatusNotFound)
	}))

	_, err := client.Cart().Get(context.Background(), &cart.GetRequest{CartID: "x", Currency: "USD"})
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", ae.StatusCode)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound should classify a 404 APIError")
	}
}

func TestDryRunSkipsRemoteCall(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))

	var dryRunMethod, dryRunURL string
	resp, err := client.Cart().Create(context.Background(), &cart.CreateRequest{Currency: "USD"}, DryRun(func(method, url string, payload any) {
		dryRunMethod, dryRunURL = method, url
	}))
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if resp != nil {
		t.Fatalf("dry run response = %+v, want nil", resp)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("dry run reached the server (%d calls)", got)
	}
	if dryRunMethod != "POST" || dryRunURL == "" {
		t.Fatalf("dry run handler got (%q, %q)", dryRunMethod, dryRunURL)
	}
}

func TestCheckoutCompleteDecodesBranches(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != consts.CheckoutCompletePath {
			t.Errorf("path = %q, want %q", r.URL.Path, consts.CheckoutCompletePath)
		}
		_, _ = w.Write([]byte(`{"payment_url":"https://pay.example.com/p/1"}`))
	}))

	res, err := client.Checkout().Complete(context.Background(), &checkout.CompleteRequest{
		CheckoutID:      "chk-1",
		PaymentMethodID: "pm-1",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.PaymentURL == nil || *res.PaymentURL != "https://pay.example.com/p/1" {
		t.Fatalf("payment url = %v", res.PaymentURL)
	}
	if res.Order != nil || len(res.UserErrors) != 0 {
		t.Fatalf("unexpected extra branches: %+v", res)
	}
}

func TestCheckoutCompleteValidates(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := client.Checkout().Complete(context.Background(), &checkout.CompleteRequest{})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("invalid request reached the server (%d calls)", got)
	}
}

func TestCatalogGetProduct(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != consts.CatalogProductPath {
			t.Errorf("path = %q, want %q", r.URL.Path, consts.CatalogProductPath)
		}
		_, _ = w.Write([]byte(`{"product":{"id":"p-1","title":"Tee","variants":[{"id":"v-1","price":{"amount":1500,"currency":"USD"}}]}}`))
	}))

	resp, err := client.Catalog().GetProduct(context.Background(), &catalog.GetRequest{ProductID: "p-1", Currency: "USD"})
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if resp.Product == nil || resp.Product.ID != "p-1" {
		t.Fatalf("product = %+v", resp.Product)
	}
	if len(resp.Product.Variants) != 1 || resp.Product.Variants[0].Price.Amount != 1500 {
		t.Fatalf("variants = %+v", resp.Product.Variants)
	}
}

func TestNilRequestRejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if _, err := client.Cart().Get(context.Background(), nil); !IsValidationError(err) {
		t.Fatalf("expected validation error for nil request, got %v", err)
	}
	if _, err := client.Checkout().Create(context.Background(), nil); !IsValidationError(err) {
		t.Fatalf("expected validation error for nil request, got %v", err)
	}
}
