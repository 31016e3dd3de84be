package checkout

import "github.com/merchkit/go-storefront/cart"

// Address is a postal address as submitted to the backend.
type Address struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Company   *string `json:"company,omitempty"`
	Address1  string  `json:"address1"`
	Address2  *string `json:"address2,omitempty"`
	City      string  `json:"city"`
	Province  *string `json:"province,omitempty"`
	Country   string  `json:"country"`
	Zip       string  `json:"zip"`
	Phone     *string `json:"phone,omitempty"`
}

// ShippingRate is a server-computed delivery quote.
type ShippingRate struct {
	Handle string     `json:"handle"`
	Title  string     `json:"title"`
	Price  cart.Money `json:"price"`
}

// PaymentMethod is one entry of the backend's available-methods list.
type PaymentMethod struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Type                string   `json:"type"`
	SupportedCurrencies []string `json:"supported_currencies,omitempty"`
}

// SupportsCurrency reports whether the method can settle in code.
func (m PaymentMethod) SupportsCurrency(code string) bool {
	for _, c := range m.SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// AppliedGiftCard is a gift card already attached to the checkout.
type AppliedGiftCard struct {
	ID             string     `json:"id"`
	LastCharacters string     `json:"last_characters"`
	AmountUsed     cart.Money `json:"amount_used"`
}

// Checkout is the backend-owned checkout entity.
//
// Shipping rates and payment methods are recomputed server-side; the SDK
// refetches after address and shipping-line changes so quotes stay current.
type Checkout struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	CurrencyCode    string            `json:"currency_code"`
	ShippingAddress *Address          `json:"shipping_address,omitempty"`
	BillingAddress  *Address          `json:"billing_address,omitempty"`
	ShippingRates   []ShippingRate    `json:"shipping_rates,omitempty"`
	ShippingLine    *ShippingRate     `json:"shipping_line,omitempty"`
	PaymentMethods  []PaymentMethod   `json:"payment_methods,omitempty"`
	DiscountCode    *string           `json:"discount_code,omitempty"`
	GiftCards       []AppliedGiftCard `json:"gift_cards,omitempty"`
	Cost            cart.Cost         `json:"cost"`
}

// PaymentMethodByID returns the method from the current available list, or nil.
func (c *Checkout) PaymentMethodByID(id string) *PaymentMethod {
	if c == nil {
		return nil
	}
	for i := range c.PaymentMethods {
		if c.PaymentMethods[i].ID == id {
			return &c.PaymentMethods[i]
		}
	}
	return nil
}

type UserError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// CreateRequest corresponds to "Create checkout" (POST /v1/checkout/create).
type CreateRequest struct {
	CartID   string `json:"cart_id"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
}

// GetRequest corresponds to "Read checkout" (POST /v1/checkout/get).
type GetRequest struct {
	CheckoutID string `json:"checkout_id"`
	Currency   string `json:"currency"`
}

// EmailRequest corresponds to "Update email" (POST /v1/checkout/email).
type EmailRequest struct {
	CheckoutID string `json:"checkout_id"`
	Email      string `json:"email"`
}

// AddressRequest is shared by the shipping- and billing-address updates.
type AddressRequest struct {
	CheckoutID string  `json:"checkout_id"`
	Address    Address `json:"address"`
}

// ShippingLineRequest corresponds to "Update shipping line"
// (POST /v1/checkout/shipping-line).
type ShippingLineRequest struct {
	CheckoutID string `json:"checkout_id"`
	RateHandle string `json:"rate_handle"`
}

// DiscountRequest is shared by discount-code apply and remove.
type DiscountRequest struct {
	CheckoutID string `json:"checkout_id"`
	Code       string `json:"code,omitempty"`
}

// GiftCardRequest is shared by gift-card apply and remove.
type GiftCardRequest struct {
	CheckoutID string `json:"checkout_id"`
	Code       string `json:"code,omitempty"`
	GiftCardID string `json:"gift_card_id,omitempty"`
}

// CompleteRequest corresponds to "Complete checkout" (POST /v1/checkout/complete).
type CompleteRequest struct {
	CheckoutID      string `json:"checkout_id"`
	PaymentMethodID string `json:"payment_method_id"`
}

// Order is the created order reference returned by a completed checkout.
type Order struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
}

// CompleteResult is the branching completion payload. Exactly one of
// UserErrors, PaymentURL or Order is expected to be set.
type CompleteResult struct {
	UserErrors []UserError `json:"user_errors,omitempty"`
	PaymentURL *string     `json:"payment_url,omitempty"`
	Order      *Order      `json:"order,omitempty"`
}

// Response is the envelope returned by non-completion checkout operations.
type Response struct {
	Checkout   *Checkout   `json:"checkout"`
	UserErrors []UserError `json:"user_errors,omitempty"`
}
