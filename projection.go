package go_storefront

import (
	"context"
	"strings"

	"github.com/merchkit/go-storefront/cache"
	"github.com/merchkit/go-storefront/cart"
)

// CartItem is one display-ready cart line.
type CartItem struct {
	LineID       string
	VariantID    string
	ProductID    string
	ProductTitle string
	VariantTitle string
	ProductType  string
	Quantity     int
	UnitPrice    cart.Money
	ImageURL     string
	Available    bool
}

// CartView is the read-only, display-ready cart derived from the identity
// and the settlement currency. It is recomputed on every fetch and never
// mutated in place.
type CartView struct {
	Items         []CartItem
	TotalQuantity int
	Subtotal      cart.Money
	Total         cart.Money
	DiscountCodes []string
	TotalDiscount cart.Money

	// Stale is set when a persisted cart id no longer resolves to a
	// backend cart. The caller reconciles via Session.Reconcile.
	Stale bool
}

// Projection derives CartViews through the currency-keyed read cache.
type Projection struct {
	s *Session
}

// View derives the current cart view. No cart identity yields an empty
// view. The fetch key is (cart, id, currency): a currency change always
// refetches even with an unchanged cart id, because prices are
// currency-denominated server-side.
func (p *Projection) View(ctx context.Context) (*CartView, error) {
	id, err := p.s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return &CartView{}, nil
	}

	cur := p.s.currency.Current()
	key := cache.Key{Kind: cache.KindCart, Ref: id, Currency: cur}
	if v, ok := p.s.cache.Get(key); ok {
		if c, ok := v.(*cart.Cart); ok {
			return deriveCartView(c), nil
		}
	}

	resp, err := p.s.client.Cart().Get(ctx, &cart.GetRequest{CartID: id, Currency: cur})
	if err != nil {
		return nil, err
	}
	if resp.Cart == nil {
		// Completed fetch, no cart: the identity is stale. Not cached;
		// the verdict is applied once by the caller.
		return &CartView{Stale: true}, nil
	}

	p.s.cache.Set(key, resp.Cart)
	return deriveCartView(resp.Cart), nil
}

// Refresh drops the cached entry for the current identity and re-derives.
func (p *Projection) Refresh(ctx context.Context) (*CartView, error) {
	id, err := p.s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if id != "" {
		p.s.cache.DeleteRef(cache.KindCart, id)
	}
	return p.View(ctx)
}

func deriveCartView(c *cart.Cart) *CartView {
	v := &CartView{
		Items:         make([]CartItem, 0, len(c.Lines)),
		Subtotal:      c.Cost.Subtotal,
		Total:         c.Cost.Total,
		DiscountCodes: append([]string(nil), c.DiscountCodes...),
	}
	for _, l := range c.Lines {
		item := CartItem{
			LineID:       l.ID,
			VariantID:    l.VariantID,
			ProductID:    l.ProductID,
			ProductTitle: l.ProductTitle,
			VariantTitle: displayVariantTitle(l.VariantTitle),
			ProductType:  l.ProductType,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Available:    l.Available,
		}
		if l.ImageURL != nil {
			item.ImageURL = *l.ImageURL
		}
		v.Items = append(v.Items, item)
		v.TotalQuantity += l.Quantity
	}

	// Derived, never negative by construction.
	discount := c.Cost.Subtotal.Amount - c.Cost.Total.Amount
	if discount < 0 {
		discount = 0
	}
	v.TotalDiscount = cart.Money{Amount: discount, Currency: c.Cost.Subtotal.Currency}
	return v
}

// displayVariantTitle suppresses the generic single-variant placeholder.
func displayVariantTitle(title string) string {
	switch strings.ToLower(strings.TrimSpace(title)) {
	case "default", "default title":
		return ""
	}
	return title
}
