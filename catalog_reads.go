package go_storefront

import (
	"context"
	"fmt"

	"github.com/merchkit/go-storefront/cache"
	"github.com/merchkit/go-storefront/catalog"
)

// Catalog reads through the session cache. Prices are denominated in the
// settlement currency, so the keys carry it and a currency change purges
// these entries along with everything else.

// Product reads one product, served from the cache when possible.
// An unknown product id yields a nil product, not an error.
func (s *Session) Product(ctx context.Context, productID string) (*catalog.Product, error) {
	if productID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "product_id", Message: "is required"}}}
	}

	cur := s.currency.Current()
	key := cache.Key{Kind: cache.KindProduct, Ref: productID, Currency: cur}
	if v, ok := s.cache.Get(key); ok {
		if p, ok := v.(*catalog.Product); ok {
			return p, nil
		}
	}

	resp, err := s.client.Catalog().GetProduct(ctx, &catalog.GetRequest{ProductID: productID, Currency: cur})
	if err != nil {
		return nil, err
	}
	if resp.Product == nil {
		return nil, nil
	}
	s.cache.Set(key, resp.Product)
	return resp.Product, nil
}

// Products reads one listing page, served from the cache when possible.
func (s *Session) Products(ctx context.Context, query string, page int) (*catalog.ListResponse, error) {
	if page < 0 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "page", Message: "must be >= 0"}}}
	}

	cur := s.currency.Current()
	key := cache.Key{Kind: cache.KindListing, Ref: listingRef(query, page), Currency: cur}
	if v, ok := s.cache.Get(key); ok {
		if l, ok := v.(*catalog.ListResponse); ok {
			return l, nil
		}
	}

	resp, err := s.client.Catalog().ListProducts(ctx, &catalog.ListRequest{Query: query, Page: page, Currency: cur})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, resp)
	return resp, nil
}

func listingRef(query string, page int) string {
	return fmt.Sprintf("%s|page=%d", query, page)
}
