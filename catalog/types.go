package catalog

import "github.com/merchkit/go-storefront/cart"

// Variant is a purchasable variation of a product.
type Variant struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Price     cart.Money `json:"price"`
	Available bool       `json:"available"`
}

// Product is a catalog entry with currency-denominated prices.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Variants    []Variant `json:"variants"`
}

// GetRequest corresponds to "Read product" (POST /v1/catalog/product).
type GetRequest struct {
	ProductID string `json:"product_id"`
	Currency  string `json:"currency"`
}

// ListRequest corresponds to "List products" (POST /v1/catalog/list).
type ListRequest struct {
	Query    string `json:"query,omitempty"`
	Page     int    `json:"page,omitempty"`
	Currency string `json:"currency"`
}

type GetResponse struct {
	Product *Product `json:"product"`
}

type ListResponse struct {
	Products   []Product `json:"products"`
	TotalPages int       `json:"total_pages"`
}
