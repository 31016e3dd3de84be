package go_storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/merchkit/go-storefront/cart"
	"github.com/merchkit/go-storefront/catalog"
	"github.com/merchkit/go-storefront/checkout"
	"github.com/merchkit/go-storefront/consts"
	"github.com/merchkit/go-storefront/internal/httpclient"
	"github.com/merchkit/go-storefront/log"
)

// Client is the main storefront SDK client.
//
// It executes named operations against the remote commerce service:
//   - Cart: create/read cart, add/update/remove lines
//   - Checkout: create/read, contact/address/shipping-line updates,
//     discount and gift-card handling, completion
//   - Catalog: currency-denominated product reads
//
// Business failures surface as user-error lists inside the response
// payloads; only transport and validation failures are returned as errors.
type Client struct {
	cfg config

	http *httpclient.Client

	cart     *CartService
	checkout *CheckoutService
	catalog  *CatalogService
}

func NewClient(opts ...Option) (Storefront, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	c := &Client{cfg: cfg}
	c.http = httpclient.New(cfg.httpClient, cfg.accessToken, cfg.logger, cfg.retryAttempts, cfg.retryWait, nil, cfg.recorder, cfg.requestsPerSecond, cfg.logBodies)

	c.cart = &CartService{c: c}
	c.checkout = &CheckoutService{c: c}
	c.catalog = &CatalogService{c: c}
	return c, nil
}

// NewDefaultClient is a convenience wrapper around NewClient() with default configuration.
func NewDefaultClient() (Storefront, error) {
	return NewClient()
}

func (c *Client) Cart() *CartService         { return c.cart }
func (c *Client) Checkout() *CheckoutService { return c.checkout }
func (c *Client) Catalog() *CatalogService   { return c.catalog }

// SetLogLevel updates SDK log level when current logger supports it.
func (c *Client) SetLogLevel(level log.Level) {
	if c == nil || c.cfg.logger == nil {
		return
	}
	if l, ok := c.cfg.logger.(interface{ SetLevel(log.Level) }); ok {
		l.SetLevel(level)
	}
}

func joinURL(base string, p string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	u.Path = path.Join(u.Path, p)
	return u.String(), nil
}

func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var hs *httpclient.HTTPStatusError
	if errors.As(err, &hs) {
		return &APIError{StatusCode: hs.StatusCode, Body: hs.Body}
	}
	return err
}

// =========================
// Cart API
// =========================

type CartService struct{ c *Client }

// Create creates a server-owned cart, optionally seeded with lines.
func (s *CartService) Create(ctx context.Context, req *cart.CreateRequest, runOpts ...RunOption) (*cart.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCartCreate(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CartCreatePath, req, runOpts)
}

// Get reads the cart. An unknown id yields a nil Cart, not an error:
// staleness is a state the caller reconciles, not a transport failure.
func (s *CartService) Get(ctx context.Context, req *cart.GetRequest, runOpts ...RunOption) (*cart.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCartGet(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CartGetPath, req, runOpts)
}

// AddLines adds line items to an existing cart.
func (s *CartService) AddLines(ctx context.Context, req *cart.AddLinesRequest, runOpts ...RunOption) (*cart.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCartAddLines(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CartAddLinesPath, req, runOpts)
}

// UpdateLine sets the quantity of one line.
func (s *CartService) UpdateLine(ctx context.Context, req *cart.UpdateLineRequest, runOpts ...RunOption) (*cart.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCartUpdateLine(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CartUpdateLinePath, req, runOpts)
}

// RemoveLine deletes one line from the cart.
func (s *CartService) RemoveLine(ctx context.Context, req *cart.RemoveLineRequest, runOpts ...RunOption) (*cart.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCartRemoveLine(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CartRemoveLinePath, req, runOpts)
}

func (s *CartService) do(ctx context.Context, endpointPath string, req any, runOpts []RunOption) (*cart.Response, error) {
	full, err := joinURL(s.c.cfg.baseURL, endpointPath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, "POST", full, req) {
		return nil, nil
	}
	var out cart.Response
	_, _, err = s.c.http.DoJSON(ctx, "POST", full, req, &out)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// =========================
// Checkout API
// =========================

type CheckoutService struct{ c *Client }

// Create creates a checkout correlated with the cart.
func (s *CheckoutService) Create(ctx context.Context, req *checkout.CreateRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCheckoutCreate(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CheckoutCreatePath, req, runOpts)
}

// Get reads the checkout, including server-computed shipping rates and the
// current available payment methods.
func (s *CheckoutService) Get(ctx context.Context, req *checkout.GetRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if err := validateCheckoutGet(req); err != nil {
		return nil, err
	}
	return s.do(ctx, consts.CheckoutGetPath, req, runOpts)
}

// UpdateEmail replaces the checkout contact email.
func (s *CheckoutService) UpdateEmail(ctx context.Context, req *checkout.EmailRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.Email == "" {
		ve.Add("email", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return s.do(ctx, consts.CheckoutEmailPath, req, runOpts)
}

// UpdateShippingAddress sets the shipping address.
func (s *CheckoutService) UpdateShippingAddress(ctx context.Context, req *checkout.AddressRequest, runOpts ...RunOption) (*checkout.Response, error) {
	return s.updateAddress(ctx, consts.CheckoutShippingAddressPath, req, runOpts)
}

// UpdateBillingAddress sets the billing address.
func (s *CheckoutService) UpdateBillingAddress(ctx context.Context, req *checkout.AddressRequest, runOpts ...RunOption) (*checkout.Response, error) {
	return s.updateAddress(ctx, consts.CheckoutBillingAddressPath, req, runOpts)
}

func (s *CheckoutService) updateAddress(ctx context.Context, endpointPath string, req *checkout.AddressRequest, runOpts []RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if req.CheckoutID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "checkout_id", Message: "is required"}}}
	}
	return s.do(ctx, endpointPath, req, runOpts)
}

// UpdateShippingLine selects a shipping rate by handle.
func (s *CheckoutService) UpdateShippingLine(ctx context.Context, req *checkout.ShippingLineRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.RateHandle == "" {
		ve.Add("rate_handle", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return s.do(ctx, consts.CheckoutShippingLinePath, req, runOpts)
}

// ApplyDiscountCode attaches a discount code to the checkout.
func (s *CheckoutService) ApplyDiscountCode(ctx context.Context, req *checkout.DiscountRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.Code == "" {
		ve.Add("code", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return s.do(ctx, consts.CheckoutDiscountApplyPath, req, runOpts)
}

// RemoveDiscountCode detaches the applied discount code.
func (s *CheckoutService) RemoveDiscountCode(ctx context.Context, req *checkout.DiscountRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if req.CheckoutID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "checkout_id", Message: "is required"}}}
	}
	return s.do(ctx, consts.CheckoutDiscountRemovePath, req, runOpts)
}

// ApplyGiftCard attaches a gift card code to the checkout.
func (s *CheckoutService) ApplyGiftCard(ctx context.Context, req *checkout.GiftCardRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.Code == "" {
		ve.Add("code", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return s.do(ctx, consts.CheckoutGiftCardApplyPath, req, runOpts)
}

// RemoveGiftCard detaches an applied gift card by id.
func (s *CheckoutService) RemoveGiftCard(ctx context.Context, req *checkout.GiftCardRequest, runOpts ...RunOption) (*checkout.Response, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.GiftCardID == "" {
		ve.Add("gift_card_id", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return s.do(ctx, consts.CheckoutGiftCardRemovePath, req, runOpts)
}

// Complete submits the checkout for payment. The result branches into user
// errors, an external payment redirect, or a created order.
func (s *CheckoutService) Complete(ctx context.Context, req *checkout.CompleteRequest, runOpts ...RunOption) (*checkout.CompleteResult, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.PaymentMethodID == "" {
		ve.Add("payment_method_id", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.CheckoutCompletePath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, "POST", full, req) {
		return nil, nil
	}
	var out checkout.CompleteResult
	_, _, err = s.c.http.DoJSON(ctx, "POST", full, req, &out)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

func (s *CheckoutService) do(ctx context.Context, endpointPath string, req any, runOpts []RunOption) (*checkout.Response, error) {
	full, err := joinURL(s.c.cfg.baseURL, endpointPath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, "POST", full, req) {
		return nil, nil
	}
	var out checkout.Response
	_, _, err = s.c.http.DoJSON(ctx, "POST", full, req, &out)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// =========================
// Catalog API
// =========================

type CatalogService struct{ c *Client }

// GetProduct reads one product with prices in the requested currency.
func (s *CatalogService) GetProduct(ctx context.Context, req *catalog.GetRequest, runOpts ...RunOption) (*catalog.GetResponse, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	ve := &ValidationError{}
	if req.ProductID == "" {
		ve.Add("product_id", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.CatalogProductPath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, "POST", full, req) {
		return nil, nil
	}
	var out catalog.GetResponse
	_, _, err = s.c.http.DoJSON(ctx, "POST", full, req, &out)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// ListProducts reads a catalog listing page.
func (s *CatalogService) ListProducts(ctx context.Context, req *catalog.ListRequest, runOpts ...RunOption) (*catalog.ListResponse, error) {
	if s == nil || s.c == nil {
		return nil, errors.New("client is nil")
	}
	if req == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "request", Message: "is nil"}}}
	}
	if req.Currency == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "currency", Message: "is required"}}}
	}

	full, err := joinURL(s.c.cfg.baseURL, consts.CatalogListPath)
	if err != nil {
		return nil, err
	}
	if shouldDryRun(runOpts, "POST", full, req) {
		return nil, nil
	}
	var out catalog.ListResponse
	_, _, err = s.c.http.DoJSON(ctx, "POST", full, req, &out)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &out, nil
}

// =========================
// Validation
// =========================

func validateCartCreate(req *cart.CreateRequest) error {
	ve := &ValidationError{}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	for i, l := range req.Lines {
		if l.VariantID == "" {
			ve.Add(fmt.Sprintf("lines[%d].variant_id", i), "is required")
		}
		if l.Quantity <= 0 {
			ve.Add(fmt.Sprintf("lines[%d].quantity", i), "must be > 0")
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCartGet(req *cart.GetRequest) error {
	ve := &ValidationError{}
	if req.CartID == "" {
		ve.Add("cart_id", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCartAddLines(req *cart.AddLinesRequest) error {
	ve := &ValidationError{}
	if req.CartID == "" {
		ve.Add("cart_id", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if len(req.Lines) == 0 {
		ve.Add("lines", "must contain at least one line")
	}
	for i, l := range req.Lines {
		if l.VariantID == "" {
			ve.Add(fmt.Sprintf("lines[%d].variant_id", i), "is required")
		}
		if l.Quantity <= 0 {
			ve.Add(fmt.Sprintf("lines[%d].quantity", i), "must be > 0")
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCartUpdateLine(req *cart.UpdateLineRequest) error {
	ve := &ValidationError{}
	if req.CartID == "" {
		ve.Add("cart_id", "is required")
	}
	if req.LineID == "" {
		ve.Add("line_id", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if req.Quantity <= 0 {
		ve.Add("quantity", "must be > 0; removal is a separate operation")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCartRemoveLine(req *cart.RemoveLineRequest) error {
	ve := &ValidationError{}
	if req.CartID == "" {
		ve.Add("cart_id", "is required")
	}
	if req.LineID == "" {
		ve.Add("line_id", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCheckoutCreate(req *checkout.CreateRequest) error {
	ve := &ValidationError{}
	if req.CartID == "" {
		ve.Add("cart_id", "is required")
	}
	if req.Email == "" {
		ve.Add("email", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCheckoutGet(req *checkout.GetRequest) error {
	ve := &ValidationError{}
	if req.CheckoutID == "" {
		ve.Add("checkout_id", "is required")
	}
	if req.Currency == "" {
		ve.Add("currency", "is required")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}
