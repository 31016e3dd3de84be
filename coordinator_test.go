package go_storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/merchkit/go-storefront/cart"
	"github.com/merchkit/go-storefront/consts"
	"github.com/merchkit/go-storefront/identity"
)

// cartBackend is a canned cart API with per-path call counting.
type cartBackend struct {
	t *testing.T

	mu         sync.Mutex
	calls      map[string]int
	lastUpdate cart.UpdateLineRequest

	createResponse string
	addResponse    string
	updateResponse string
	removeResponse string
}

func newCartBackend(t *testing.T) *cartBackend {
	return &cartBackend{
		t:              t,
		calls:          map[string]int{},
		createResponse: `{"cart":{"id":"cart-1","currency_code":"USD"}}`,
		addResponse:    `{"cart":{"id":"cart-1","currency_code":"USD"}}`,
		updateResponse: `{"cart":{"id":"cart-1","currency_code":"USD"}}`,
		removeResponse: `{"cart":{"id":"cart-1","currency_code":"USD"}}`,
	}
}

func (b *cartBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls[r.URL.Path]++
	b.mu.Unlock()

	switch r.URL.Path {
	case consts.CartCreatePath:
		_, _ = w.Write([]byte(b.createResponse))
	case consts.CartAddLinesPath:
		var req cart.AddLinesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.IdempotencyKey == nil || *req.IdempotencyKey == "" {
			b.t.Error("add lines request is missing its idempotency key")
		}
		_, _ = w.Write([]byte(b.addResponse))
	case consts.CartUpdateLinePath:
		var req cart.UpdateLineRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.lastUpdate = req
		b.mu.Unlock()
		_, _ = w.Write([]byte(b.updateResponse))
	case consts.CartRemoveLinePath:
		_, _ = w.Write([]byte(b.removeResponse))
	default:
		http.NotFound(w, r)
	}
}

func (b *cartBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func newTestSession(t *testing.T, handler http.Handler, opts ...SessionOption) *Session {
	t.Helper()
	client, _ := newTestClient(t, handler)

	opts = append([]SessionOption{WithSessionLogger(nil)}, opts...)
	s, err := NewSession(client, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seededStore(t *testing.T, id string) identity.Store {
	t.Helper()
	store := identity.NewMemory()
	if err := store.Save(context.Background(), id); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func TestAddToCartCreatesCartWhenNoIdentity(t *testing.T) {
	backend := newCartBackend(t)
	s := newTestSession(t, backend)
	ctx := context.Background()

	if err := s.Coordinator().AddToCart(ctx, "v-1", 2); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	if got := backend.count(consts.CartCreatePath); got != 1 {
		t.Fatalf("create called %d times, want 1", got)
	}
	if got := backend.count(consts.CartAddLinesPath); got != 0 {
		t.Fatalf("add lines called %d times, want 0", got)
	}

	id, err := s.CartID(ctx)
	if err != nil {
		t.Fatalf("cart id: %v", err)
	}
	if id != "cart-1" {
		t.Fatalf("persisted cart id = %q, want cart-1", id)
	}
}

func TestAddToCartUsesExistingIdentity(t *testing.T) {
	backend := newCartBackend(t)
	s := newTestSession(t, backend, WithIdentityStore(seededStore(t, "cart-1")))

	if err := s.Coordinator().AddToCart(context.Background(), "v-1", 1); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	if got := backend.count(consts.CartAddLinesPath); got != 1 {
		t.Fatalf("add lines called %d times, want 1", got)
	}
	if got := backend.count(consts.CartCreatePath); got != 0 {
		t.Fatalf("create called %d times, want 0", got)
	}
}

func TestAddToCartRecoversFromStaleIdentityOnce(t *testing.T) {
	backend := newCartBackend(t)
	backend.addResponse = `{"cart":null,"user_errors":[{"message":"cart not found","code":"CART_NOT_FOUND"}]}`
	backend.createResponse = `{"cart":{"id":"cart-2","currency_code":"USD"}}`

	s := newTestSession(t, backend, WithIdentityStore(seededStore(t, "cart-stale")))
	ctx := context.Background()

	if err := s.Coordinator().AddToCart(ctx, "v-1", 1); err != nil {
		t.Fatalf("add to cart should recover from a stale id: %v", err)
	}

	if got := backend.count(consts.CartAddLinesPath); got != 1 {
		t.Fatalf("add lines called %d times, want 1", got)
	}
	if got := backend.count(consts.CartCreatePath); got != 1 {
		t.Fatalf("create called %d times, want exactly 1 retry", got)
	}

	id, _ := s.CartID(ctx)
	if id != "cart-2" {
		t.Fatalf("persisted cart id = %q, want cart-2", id)
	}
}

func TestAddToCartValidatesBeforeRemoteCall(t *testing.T) {
	backend := newCartBackend(t)
	s := newTestSession(t, backend)

	if err := s.Coordinator().AddToCart(context.Background(), "", 0); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := backend.count(consts.CartCreatePath) + backend.count(consts.CartAddLinesPath); got != 0 {
		t.Fatalf("invalid input reached the server (%d calls)", got)
	}
}

func TestUpdateQuantityCoalescesLatestWins(t *testing.T) {
	backend := newCartBackend(t)
	clk := clock.NewMock()
	s := newTestSession(t, backend,
		WithIdentityStore(seededStore(t, "cart-1")),
		WithClock(clk),
	)
	ctx := context.Background()

	for _, q := range []int{2, 3, 4} {
		if err := s.Coordinator().UpdateQuantity(ctx, "line-1", q); err != nil {
			t.Fatalf("update quantity: %v", err)
		}
	}

	if got := backend.count(consts.CartUpdateLinePath); got != 0 {
		t.Fatalf("update fired before the debounce window elapsed (%d calls)", got)
	}
	if got := s.Coordinator().PendingUpdates(); got != 1 {
		t.Fatalf("pending updates = %d, want 1", got)
	}

	clk.Add(500 * time.Millisecond)

	if got := backend.count(consts.CartUpdateLinePath); got != 1 {
		t.Fatalf("update called %d times, want 1", got)
	}
	backend.mu.Lock()
	last := backend.lastUpdate
	backend.mu.Unlock()
	if last.Quantity != 4 || last.LineID != "line-1" {
		t.Fatalf("fired update = %+v, want line-1 quantity 4", last)
	}
}

func TestUpdateQuantityPerLineIndependence(t *testing.T) {
	backend := newCartBackend(t)
	clk := clock.NewMock()
	s := newTestSession(t, backend,
		WithIdentityStore(seededStore(t, "cart-1")),
		WithClock(clk),
	)
	ctx := context.Background()

	_ = s.Coordinator().UpdateQuantity(ctx, "line-1", 2)
	_ = s.Coordinator().UpdateQuantity(ctx, "line-2", 5)

	if got := s.Coordinator().PendingUpdates(); got != 2 {
		t.Fatalf("pending updates = %d, want 2", got)
	}

	clk.Add(500 * time.Millisecond)

	if got := backend.count(consts.CartUpdateLinePath); got != 2 {
		t.Fatalf("update called %d times, want 2", got)
	}
}

func TestUpdateQuantityZeroRoutesToRemove(t *testing.T) {
	backend := newCartBackend(t)
	s := newTestSession(t, backend, WithIdentityStore(seededStore(t, "cart-1")))

	if err := s.Coordinator().UpdateQuantity(context.Background(), "line-1", 0); err != nil {
		t.Fatalf("update to zero: %v", err)
	}

	if got := backend.count(consts.CartRemoveLinePath); got != 1 {
		t.Fatalf("remove called %d times, want 1", got)
	}
	if got := backend.count(consts.CartUpdateLinePath); got != 0 {
		t.Fatalf("update called %d times, want 0", got)
	}
}

func TestRemoveCancelsPendingUpdate(t *testing.T) {
	backend := newCartBackend(t)
	clk := clock.NewMock()
	s := newTestSession(t, backend,
		WithIdentityStore(seededStore(t, "cart-1")),
		WithClock(clk),
	)
	ctx := context.Background()

	_ = s.Coordinator().UpdateQuantity(ctx, "line-1", 3)
	if err := s.Coordinator().Remove(ctx, "line-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	clk.Add(time.Second)

	if got := backend.count(consts.CartUpdateLinePath); got != 0 {
		t.Fatalf("canceled update still fired (%d calls)", got)
	}
	if got := backend.count(consts.CartRemoveLinePath); got != 1 {
		t.Fatalf("remove called %d times, want 1", got)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	backend := newCartBackend(t)
	backend.removeResponse = `{"cart":null,"user_errors":[{"message":"cart not found","code":"CART_NOT_FOUND"}]}`

	s := newTestSession(t, backend, WithIdentityStore(seededStore(t, "cart-stale")))
	ctx := context.Background()

	if err := s.Coordinator().Remove(ctx, "line-1"); err != nil {
		t.Fatalf("removing an already-gone line must succeed: %v", err)
	}

	// The stale identity was cleared; a second remove is a local no-op.
	id, _ := s.CartID(ctx)
	if id != "" {
		t.Fatalf("identity = %q, want cleared", id)
	}
	if err := s.Coordinator().Remove(ctx, "line-1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if got := backend.count(consts.CartRemoveLinePath); got != 1 {
		t.Fatalf("remove called %d times, want 1", got)
	}
}

func TestFlushPendingFiresImmediately(t *testing.T) {
	backend := newCartBackend(t)
	clk := clock.NewMock()
	s := newTestSession(t, backend,
		WithIdentityStore(seededStore(t, "cart-1")),
		WithClock(clk),
	)
	ctx := context.Background()

	_ = s.Coordinator().UpdateQuantity(ctx, "line-1", 7)
	_ = s.Coordinator().UpdateQuantity(ctx, "line-2", 1)

	if err := s.Coordinator().FlushPending(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := backend.count(consts.CartUpdateLinePath); got != 2 {
		t.Fatalf("update called %d times, want 2", got)
	}
	if got := s.Coordinator().PendingUpdates(); got != 0 {
		t.Fatalf("pending updates = %d, want 0", got)
	}
}

func TestUpdateQuantityAfterIdentityClearedIsNoOp(t *testing.T) {
	backend := newCartBackend(t)
	clk := clock.NewMock()
	s := newTestSession(t, backend, WithClock(clk))
	ctx := context.Background()

	// No identity exists; the fired update must not reach the server.
	_ = s.Coordinator().UpdateQuantity(ctx, "line-1", 3)
	clk.Add(500 * time.Millisecond)

	if got := backend.count(consts.CartUpdateLinePath); got != 0 {
		t.Fatalf("update without identity reached the server (%d calls)", got)
	}
}
