package cache

import (
	"testing"

	"github.com/merchkit/go-storefront/currency"
)

func TestMemorySetGetDelete(t *testing.T) {
	m := NewMemory()
	key := Key{Kind: KindCart, Ref: "cart-1", Currency: "USD"}

	if _, ok := m.Get(key); ok {
		t.Fatal("empty cache must miss")
	}

	m.Set(key, "v1")
	v, ok := m.Get(key)
	if !ok || v != "v1" {
		t.Fatalf("got (%v, %v), want (v1, true)", v, ok)
	}

	m.Delete(key)
	if _, ok := m.Get(key); ok {
		t.Fatal("deleted entry must miss")
	}
}

func TestDeleteRefDropsAllCurrencies(t *testing.T) {
	m := NewMemory()
	m.Set(Key{Kind: KindCart, Ref: "cart-1", Currency: "USD"}, 1)
	m.Set(Key{Kind: KindCart, Ref: "cart-1", Currency: "EUR"}, 2)
	m.Set(Key{Kind: KindCart, Ref: "cart-2", Currency: "USD"}, 3)
	m.Set(Key{Kind: KindCheckout, Ref: "cart-1", Currency: "USD"}, 4)

	m.DeleteRef(KindCart, "cart-1")

	if _, ok := m.Get(Key{Kind: KindCart, Ref: "cart-1", Currency: "USD"}); ok {
		t.Fatal("USD entry for cart-1 should be gone")
	}
	if _, ok := m.Get(Key{Kind: KindCart, Ref: "cart-1", Currency: "EUR"}); ok {
		t.Fatal("EUR entry for cart-1 should be gone")
	}
	if _, ok := m.Get(Key{Kind: KindCart, Ref: "cart-2", Currency: "USD"}); !ok {
		t.Fatal("other cart's entry must survive")
	}
	if _, ok := m.Get(Key{Kind: KindCheckout, Ref: "cart-1", Currency: "USD"}); !ok {
		t.Fatal("same ref under another kind must survive")
	}
}

func TestBindCurrencyPurgesOnChange(t *testing.T) {
	m := NewMemory()
	cur := currency.NewContext("USD")
	unbind := BindCurrency(m, cur)
	defer unbind()

	key := Key{Kind: KindProduct, Ref: "p-1", Currency: "USD"}
	m.Set(key, "cached")

	// Re-setting the same code must not purge.
	cur.Set("USD")
	if _, ok := m.Get(key); !ok {
		t.Fatal("unchanged currency must not purge the cache")
	}

	cur.Set("EUR")
	if _, ok := m.Get(key); ok {
		t.Fatal("currency change must purge every entry")
	}
}

func TestBindCurrencyUnsubscribe(t *testing.T) {
	m := NewMemory()
	cur := currency.NewContext("USD")
	unbind := BindCurrency(m, cur)

	key := Key{Kind: KindListing, Ref: "page-1", Currency: "USD"}
	m.Set(key, "cached")

	unbind()
	cur.Set("EUR")

	if _, ok := m.Get(key); !ok {
		t.Fatal("detached cache must not be purged")
	}
}
