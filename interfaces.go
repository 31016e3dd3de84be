package go_storefront

import "github.com/merchkit/go-storefront/log"

// Storefront is the main SDK interface.
type Storefront interface {
	Cart() *CartService
	Checkout() *CheckoutService
	Catalog() *CatalogService

	SetLogLevel(level log.Level)
}

var _ Storefront = (*Client)(nil)
