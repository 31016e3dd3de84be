package go_storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/merchkit/go-storefront/cache"
	"github.com/merchkit/go-storefront/currency"
	"github.com/merchkit/go-storefront/identity"
	"github.com/merchkit/go-storefront/log"
)

// Session binds one shopper's cart identity to the client, the settlement
// currency and the read cache. It replaces any notion of a module-level
// "current cart id": all shared state is explicit and injectable.
//
// A session is single-writer for its cart; the backend remains the
// serialization point of record for the entity itself.
type Session struct {
	client   Storefront
	store    identity.Store
	cache    cache.Store
	currency *currency.Context
	clk      clock.Clock
	logger   log.Logger

	debounceDelay time.Duration

	coordinator *Coordinator
	projection  *Projection

	unbindCache func()

	mu     sync.Mutex
	uiOpen bool
	closed bool
}

type SessionOption func(*Session) error

// WithIdentityStore sets where the opaque cart id is persisted.
// Defaults to an in-memory store.
func WithIdentityStore(store identity.Store) SessionOption {
	return func(s *Session) error {
		if store == nil {
			return errors.New("identity store is nil")
		}
		s.store = store
		return nil
	}
}

// WithCache replaces the in-memory read cache.
func WithCache(store cache.Store) SessionOption {
	return func(s *Session) error {
		if store == nil {
			return errors.New("cache store is nil")
		}
		s.cache = store
		return nil
	}
}

// WithCurrencyContext shares a currency context across sessions.
func WithCurrencyContext(ctx *currency.Context) SessionOption {
	return func(s *Session) error {
		if ctx == nil {
			return errors.New("currency context is nil")
		}
		s.currency = ctx
		return nil
	}
}

// WithClock injects the clock used for debounce timers.
func WithClock(clk clock.Clock) SessionOption {
	return func(s *Session) error {
		if clk == nil {
			return errors.New("clock is nil")
		}
		s.clk = clk
		return nil
	}
}

// WithDebounceDelay overrides the quantity-update coalescing window.
func WithDebounceDelay(d time.Duration) SessionOption {
	return func(s *Session) error {
		if d <= 0 {
			return errors.New("debounce delay must be > 0")
		}
		s.debounceDelay = d
		return nil
	}
}

// WithSessionLogger sets the logger used by the coordinator and flow.
func WithSessionLogger(logger log.Logger) SessionOption {
	return func(s *Session) error {
		if logger == nil {
			s.logger = log.NopLogger{}
			return nil
		}
		s.logger = logger
		return nil
	}
}

// NewSession creates a cart session on top of a client.
func NewSession(client Storefront, opts ...SessionOption) (*Session, error) {
	if client == nil {
		return nil, errors.New("client is nil")
	}
	s := &Session{
		client:        client,
		store:         identity.NewMemory(),
		cache:         cache.NewMemory(),
		currency:      currency.NewContext(""),
		clk:           clock.New(),
		logger:        log.NewDefault(),
		debounceDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// A currency change invalidates every cached read, cart id included.
	s.unbindCache = cache.BindCurrency(s.cache, s.currency)

	s.coordinator = newCoordinator(s)
	s.projection = &Projection{s: s}
	return s, nil
}

// Coordinator returns the sole writer of cart contents.
func (s *Session) Coordinator() *Coordinator { return s.coordinator }

// Projection returns the read-only cart view deriver.
func (s *Session) Projection() *Projection { return s.projection }

// Currency returns the session's settlement currency context.
func (s *Session) Currency() *currency.Context { return s.currency }

// CartID returns the persisted cart id, or "" when none exists.
func (s *Session) CartID(ctx context.Context) (string, error) {
	return s.store.Load(ctx)
}

// ClearIdentity drops the persisted cart id and its cached reads. Called on
// stale detection and on explicit user clear; the next add-to-cart starts a
// fresh cart.
func (s *Session) ClearIdentity(ctx context.Context) error {
	id, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if id != "" {
		s.cache.DeleteRef(cache.KindCart, id)
	}
	return s.store.Clear(ctx)
}

// Reconcile applies the staleness verdict of a derived view. Reads stay
// pure; this is the explicit reconciliation step the caller invokes after
// inspecting the result.
func (s *Session) Reconcile(ctx context.Context, v *CartView) error {
	if v == nil || !v.Stale {
		return nil
	}
	return s.ClearIdentity(ctx)
}

// OpenUI, CloseUI and UIOpen track the memory-only cart drawer flag.
func (s *Session) OpenUI() {
	s.mu.Lock()
	s.uiOpen = true
	s.mu.Unlock()
}

func (s *Session) CloseUI() {
	s.mu.Lock()
	s.uiOpen = false
	s.mu.Unlock()
}

func (s *Session) UIOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uiOpen
}

// Close cancels pending debounce timers and detaches the currency
// subscription. Pending quantity updates are dropped, not fired.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.coordinator.close()
	if s.unbindCache != nil {
		s.unbindCache()
	}
	return nil
}
