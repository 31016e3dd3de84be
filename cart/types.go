package cart

// Money is an amount in minor units of a settlement currency.
//
// Amounts are computed server-side; the SDK never does price arithmetic
// beyond deriving display values from returned totals.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Line is a single server-owned cart line.
type Line struct {
	ID           string  `json:"id"`
	VariantID    string  `json:"variant_id"`
	ProductID    string  `json:"product_id"`
	ProductTitle string  `json:"product_title"`
	VariantTitle string  `json:"variant_title"`
	ProductType  string  `json:"product_type"`
	Quantity     int     `json:"quantity"`
	UnitPrice    Money   `json:"unit_price"`
	ImageURL     *string `json:"image_url,omitempty"`
	Available    bool    `json:"available"`
}

type Cost struct {
	Subtotal Money `json:"subtotal"`
	Total    Money `json:"total"`
}

// Cart is the backend-owned draft order. The SDK holds a read-only
// projection of it, never a local mutable copy.
type Cart struct {
	ID            string   `json:"id"`
	Lines         []Line   `json:"lines"`
	Cost          Cost     `json:"cost"`
	DiscountCodes []string `json:"discount_codes,omitempty"`
	CurrencyCode  string   `json:"currency_code"`
}

// UserError is a business failure reported inside a 2xx response.
type UserError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// LineInput identifies a variant and quantity to put into a cart.
type LineInput struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// CreateRequest corresponds to "Create cart" (POST /v1/cart/create).
type CreateRequest struct {
	Currency string      `json:"currency"`
	Lines    []LineInput `json:"lines,omitempty"`
}

// GetRequest corresponds to "Read cart" (POST /v1/cart/get).
//
// An unknown cart id is not an error: the response carries a null cart.
type GetRequest struct {
	CartID   string `json:"cart_id"`
	Currency string `json:"currency"`
}

// AddLinesRequest corresponds to "Add cart lines" (POST /v1/cart/lines/add).
type AddLinesRequest struct {
	CartID         string      `json:"cart_id"`
	Currency       string      `json:"currency"`
	Lines          []LineInput `json:"lines"`
	IdempotencyKey *string     `json:"idempotency_key,omitempty"`
}

// UpdateLineRequest corresponds to "Update cart line" (POST /v1/cart/lines/update).
type UpdateLineRequest struct {
	CartID         string  `json:"cart_id"`
	Currency       string  `json:"currency"`
	LineID         string  `json:"line_id"`
	Quantity       int     `json:"quantity"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

// RemoveLineRequest corresponds to "Remove cart line" (POST /v1/cart/lines/remove).
type RemoveLineRequest struct {
	CartID         string  `json:"cart_id"`
	Currency       string  `json:"currency"`
	LineID         string  `json:"line_id"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

// Response is the envelope returned by every cart operation.
type Response struct {
	Cart       *Cart       `json:"cart"`
	UserErrors []UserError `json:"user_errors,omitempty"`
}
