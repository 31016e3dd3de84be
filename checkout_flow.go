package go_storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/merchkit/go-storefront/cache"
	"github.com/merchkit/go-storefront/checkout"
	"github.com/merchkit/go-storefront/consts"
)

// Step is one stop of the checkout flow.
type Step string

const (
	StepContact   Step = "contact"
	StepShipping  Step = "shipping"
	StepDelivery  Step = "delivery"
	StepPayment   Step = "payment"
	StepReview    Step = "review"
	StepCompleted Step = "completed"
)

// ErrWrongStep is returned when a submit does not match the current step.
var ErrWrongStep = errors.New("operation not allowed at current step")

// ErrNoCheckout is returned for checkout operations before a remote
// checkout exists. No step may mutate remote state before then.
var ErrNoCheckout = errors.New("no checkout session")

const genericErrorMessage = "something went wrong, please try again"

// CompletionOutcome is the terminal result of a completed checkout:
// either an external payment redirect or an internal order-confirmation
// route, never both.
type CompletionOutcome struct {
	RedirectURL string
	OrderID     string
	Route       string
}

// CheckoutFlow drives the multi-step purchase flow against one remote
// checkout. The step path is decided once at Begin from the cart
// composition: carts holding only gift cards skip shipping and delivery.
//
// Client-side validation always precedes remote calls; backend user errors
// block advancement but never discard entered values.
type CheckoutFlow struct {
	s *Session

	mu         sync.Mutex
	cartID     string
	checkoutID string
	step       Step
	path       []Step
	current    *checkout.Checkout

	email                 string
	phone                 string
	shippingAddr          *checkout.Address
	billingAddr           *checkout.Address
	billingSameAsShipping bool
	shippingRateHandle    string
	paymentMethodID       string
	acceptedTerms         bool
	appliedDiscount       string

	fieldErrors map[string]string
	notice      string
}

// BeginCheckout starts a flow for the session's cart. The active step path
// is fixed here from the cart contents.
func (s *Session) BeginCheckout(ctx context.Context) (*CheckoutFlow, error) {
	view, err := s.projection.View(ctx)
	if err != nil {
		return nil, err
	}
	if view.Stale {
		if err := s.Reconcile(ctx, view); err != nil {
			return nil, err
		}
		return nil, ErrEmptyCart
	}
	if len(view.Items) == 0 {
		return nil, ErrEmptyCart
	}

	cartID, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	path := []Step{StepContact, StepShipping, StepDelivery, StepPayment, StepReview, StepCompleted}
	if allGiftCards(view.Items) {
		path = []Step{StepContact, StepPayment, StepReview, StepCompleted}
	}

	return &CheckoutFlow{
		s:           s,
		cartID:      cartID,
		step:        StepContact,
		path:        path,
		fieldErrors: make(map[string]string),
	}, nil
}

func allGiftCards(items []CartItem) bool {
	for _, it := range items {
		if it.ProductType != consts.ProductTypeGiftCard {
			return false
		}
	}
	return true
}

// Step returns the current step.
func (f *CheckoutFlow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Path returns the active step path decided at Begin.
func (f *CheckoutFlow) Path() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Step(nil), f.path...)
}

// CheckoutID returns the remote checkout id, or "" before creation.
func (f *CheckoutFlow) CheckoutID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkoutID
}

// Current returns the last fetched remote checkout state.
func (f *CheckoutFlow) Current() *checkout.Checkout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// FieldErrors returns a copy of the inline field errors, keyed like
// "email", "shipping_city", "payment", "terms".
func (f *CheckoutFlow) FieldErrors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.fieldErrors))
	for k, v := range f.fieldErrors {
		out[k] = v
	}
	return out
}

// Notice returns the last transient message, suitable for a toast layered
// over a still-usable form.
func (f *CheckoutFlow) Notice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notice
}

// SetContact records the contact form values.
func (f *CheckoutFlow) SetContact(email, phone string) {
	f.mu.Lock()
	f.email = strings.TrimSpace(email)
	f.phone = strings.TrimSpace(phone)
	f.mu.Unlock()
}

// SetShippingAddress records the shipping address form values.
func (f *CheckoutFlow) SetShippingAddress(a checkout.Address) {
	f.mu.Lock()
	f.shippingAddr = &a
	f.mu.Unlock()
}

// SetBillingAddress records an independent billing address.
func (f *CheckoutFlow) SetBillingAddress(a checkout.Address) {
	f.mu.Lock()
	f.billingAddr = &a
	f.billingSameAsShipping = false
	f.mu.Unlock()
}

// UseShippingAddressForBilling reuses the shipping address for billing.
func (f *CheckoutFlow) UseShippingAddressForBilling(same bool) {
	f.mu.Lock()
	f.billingSameAsShipping = same
	f.mu.Unlock()
}

// SelectShippingRate records the chosen delivery quote handle.
func (f *CheckoutFlow) SelectShippingRate(handle string) {
	f.mu.Lock()
	f.shippingRateHandle = handle
	delete(f.fieldErrors, "shipping_rate")
	f.mu.Unlock()
}

// SelectPaymentMethod validates the choice against the backend's current
// available list and the settlement currency. A failing choice sets a
// "payment" field error and leaves the previous selection unchanged.
func (f *CheckoutFlow) SelectPaymentMethod(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m := f.current.PaymentMethodByID(id)
	if m == nil {
		f.fieldErrors["payment"] = "payment method is not available"
		return &ValidationError{Fields: []FieldError{{Field: "payment", Message: "is not available"}}}
	}
	if !m.SupportsCurrency(f.settlementCurrency()) {
		f.fieldErrors["payment"] = "payment method does not support the selected currency"
		return &ValidationError{Fields: []FieldError{{Field: "payment", Message: "does not support the selected currency"}}}
	}
	f.paymentMethodID = id
	delete(f.fieldErrors, "payment")
	return nil
}

// AcceptTerms records the terms checkbox.
func (f *CheckoutFlow) AcceptTerms(accepted bool) {
	f.mu.Lock()
	f.acceptedTerms = accepted
	if accepted {
		delete(f.fieldErrors, "terms")
	}
	f.mu.Unlock()
}

// AppliedDiscountCode returns the discount code applied via this flow.
func (f *CheckoutFlow) AppliedDiscountCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appliedDiscount
}

// SelectedPaymentMethodID returns the current payment selection.
func (f *CheckoutFlow) SelectedPaymentMethodID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paymentMethodID
}

// SubmitContact validates email and phone, then creates the remote
// checkout on first entry or updates the email on re-entry, and advances.
func (f *CheckoutFlow) SubmitContact(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepContact {
		return fmt.Errorf("%w: step=%s", ErrWrongStep, f.step)
	}
	delete(f.fieldErrors, "email")
	delete(f.fieldErrors, "phone")
	f.notice = ""

	if err := validateContact(f.email, f.phone); err != nil {
		f.absorbFieldErrors(err)
		return err
	}

	if f.checkoutID == "" {
		resp, err := f.s.client.Checkout().Create(ctx, &checkout.CreateRequest{
			CartID:   f.cartID,
			Email:    f.email,
			Currency: f.s.currency.Current(),
		})
		if err != nil {
			f.notice = genericErrorMessage
			return err
		}
		if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
			f.notice = fail.Message
			return fail
		}
		if resp.Checkout == nil || resp.Checkout.ID == "" {
			f.notice = genericErrorMessage
			return errors.New("checkout create returned no checkout")
		}
		f.checkoutID = resp.Checkout.ID
		f.setCurrent(resp.Checkout)
	} else {
		resp, err := f.s.client.Checkout().UpdateEmail(ctx, &checkout.EmailRequest{
			CheckoutID: f.checkoutID,
			Email:      f.email,
		})
		if err != nil {
			f.notice = genericErrorMessage
			return err
		}
		if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
			f.notice = fail.Message
			return fail
		}
		if resp.Checkout != nil {
			f.setCurrent(resp.Checkout)
		}
	}

	f.advance()
	return nil
}

// SubmitShipping validates the address forms, submits shipping then billing
// address in order, refetches the checkout so shipping-rate quotes are
// current, and advances.
func (f *CheckoutFlow) SubmitShipping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepShipping {
		return fmt.Errorf("%w: step=%s", ErrWrongStep, f.step)
	}
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	f.clearFieldErrorsWithPrefix("shipping_")
	f.clearFieldErrorsWithPrefix("billing_")
	f.notice = ""

	if err := validateAddress(f.shippingAddr, "shipping"); err != nil {
		f.absorbFieldErrors(err)
		return err
	}
	billing := f.shippingAddr
	if !f.billingSameAsShipping {
		if err := validateAddress(f.billingAddr, "billing"); err != nil {
			f.absorbFieldErrors(err)
			return err
		}
		billing = f.billingAddr
	}

	resp, err := f.s.client.Checkout().UpdateShippingAddress(ctx, &checkout.AddressRequest{
		CheckoutID: f.checkoutID,
		Address:    *f.shippingAddr,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
		f.notice = fail.Message
		return fail
	}

	resp, err = f.s.client.Checkout().UpdateBillingAddress(ctx, &checkout.AddressRequest{
		CheckoutID: f.checkoutID,
		Address:    *billing,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
		f.notice = fail.Message
		return fail
	}

	if err := f.refresh(ctx); err != nil {
		f.notice = genericErrorMessage
		return err
	}

	f.advance()
	return nil
}

// SubmitDelivery submits the selected shipping rate, refetches so
// server-computed totals include it, and advances.
func (f *CheckoutFlow) SubmitDelivery(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepDelivery {
		return fmt.Errorf("%w: step=%s", ErrWrongStep, f.step)
	}
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	f.notice = ""

	if f.shippingRateHandle == "" {
		f.fieldErrors["shipping_rate"] = "select a delivery option"
		return &ValidationError{Fields: []FieldError{{Field: "shipping_rate", Message: "is required"}}}
	}

	resp, err := f.s.client.Checkout().UpdateShippingLine(ctx, &checkout.ShippingLineRequest{
		CheckoutID: f.checkoutID,
		RateHandle: f.shippingRateHandle,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
		f.notice = fail.Message
		return fail
	}

	if err := f.refresh(ctx); err != nil {
		f.notice = genericErrorMessage
		return err
	}

	f.advance()
	return nil
}

// SubmitPayment re-validates the payment selection against the backend's
// current list and the settlement currency. A selection that no longer
// passes is cleared and reported as a field error instead of advancing.
func (f *CheckoutFlow) SubmitPayment(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepPayment {
		return fmt.Errorf("%w: step=%s", ErrWrongStep, f.step)
	}
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	f.notice = ""

	if err := f.checkPaymentSelection(); err != nil {
		return err
	}

	f.advance()
	return nil
}

// Complete submits the checkout for payment and resolves the branching
// outcome. On success the cart identity is cleared; the caller either
// redirects the browser to RedirectURL or navigates to Route.
func (f *CheckoutFlow) Complete(ctx context.Context) (*CompletionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepReview {
		return nil, fmt.Errorf("%w: step=%s", ErrWrongStep, f.step)
	}
	if f.checkoutID == "" {
		return nil, ErrNoCheckout
	}
	f.notice = ""

	if !f.acceptedTerms {
		f.fieldErrors["terms"] = "you must accept the terms to continue"
		return nil, &ValidationError{Fields: []FieldError{{Field: "terms", Message: "must be accepted"}}}
	}
	if err := f.checkPaymentSelection(); err != nil {
		f.step = StepPayment
		return nil, err
	}
	method := f.current.PaymentMethodByID(f.paymentMethodID)

	res, err := f.s.client.Checkout().Complete(ctx, &checkout.CompleteRequest{
		CheckoutID:      f.checkoutID,
		PaymentMethodID: f.paymentMethodID,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return nil, err
	}

	if len(res.UserErrors) > 0 {
		return nil, f.resolveCompletionError(res.UserErrors[0])
	}

	if res.PaymentURL != nil && *res.PaymentURL != "" {
		if err := f.s.ClearIdentity(ctx); err != nil {
			f.s.logger.Warnf("cannot clear cart identity after completion: %v", err)
		}
		f.step = StepCompleted
		return &CompletionOutcome{RedirectURL: *res.PaymentURL}, nil
	}

	if res.Order != nil && res.Order.ID != "" {
		if err := f.s.ClearIdentity(ctx); err != nil {
			f.s.logger.Warnf("cannot clear cart identity after completion: %v", err)
		}
		f.step = StepCompleted
		route := "/checkout/success/" + res.Order.ID
		if method != nil && method.Type == consts.PaymentTypeBankTransfer {
			route += "?payment=bank_transfer"
		}
		return &CompletionOutcome{OrderID: res.Order.ID, Route: route}, nil
	}

	return nil, ErrUnexpectedCompletion
}

// Back moves one step back along the active path. Already-submitted remote
// state is not undone.
func (f *CheckoutFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == StepCompleted {
		return fmt.Errorf("%w: checkout is completed", ErrWrongStep)
	}
	i := f.stepIndex()
	if i <= 0 {
		return fmt.Errorf("%w: already at first step", ErrWrongStep)
	}
	f.step = f.path[i-1]
	return nil
}

// ApplyDiscount attaches a discount code. An empty input performs no
// remote call and leaves the applied code unchanged.
func (f *CheckoutFlow) ApplyDiscount(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	f.notice = ""

	resp, err := f.s.client.Checkout().ApplyDiscountCode(ctx, &checkout.DiscountRequest{
		CheckoutID: f.checkoutID,
		Code:       code,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if len(resp.UserErrors) > 0 {
		ue := resp.UserErrors[0]
		msg := redemptionMessage(ue.Code, ue.Message)
		f.notice = msg
		return &UserFailure{Code: ue.Code, Message: msg}
	}

	f.appliedDiscount = code
	if err := f.refresh(ctx); err != nil {
		f.s.logger.Warnf("checkout refetch after discount apply failed: %v", err)
	}
	return nil
}

// RemoveDiscount detaches the applied discount code.
func (f *CheckoutFlow) RemoveDiscount(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	f.notice = ""

	resp, err := f.s.client.Checkout().RemoveDiscountCode(ctx, &checkout.DiscountRequest{
		CheckoutID: f.checkoutID,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
		f.notice = fail.Message
		return fail
	}

	f.appliedDiscount = ""
	if err := f.refresh(ctx); err != nil {
		f.s.logger.Warnf("checkout refetch after discount remove failed: %v", err)
	}
	return nil
}

// ApplyGiftCard attaches a gift card code. An empty input performs no
// remote call.
func (f *CheckoutFlow) ApplyGiftCard(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	f.notice = ""

	resp, err := f.s.client.Checkout().ApplyGiftCard(ctx, &checkout.GiftCardRequest{
		CheckoutID: f.checkoutID,
		Code:       code,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if len(resp.UserErrors) > 0 {
		ue := resp.UserErrors[0]
		msg := redemptionMessage(ue.Code, ue.Message)
		f.notice = msg
		return &UserFailure{Code: ue.Code, Message: msg}
	}

	if err := f.refresh(ctx); err != nil {
		f.s.logger.Warnf("checkout refetch after gift card apply failed: %v", err)
	}
	return nil
}

// RemoveGiftCard detaches an applied gift card.
func (f *CheckoutFlow) RemoveGiftCard(ctx context.Context, giftCardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkoutID == "" {
		return ErrNoCheckout
	}
	if giftCardID == "" {
		return &ValidationError{Fields: []FieldError{{Field: "gift_card_id", Message: "is required"}}}
	}
	f.notice = ""

	resp, err := f.s.client.Checkout().RemoveGiftCard(ctx, &checkout.GiftCardRequest{
		CheckoutID: f.checkoutID,
		GiftCardID: giftCardID,
	})
	if err != nil {
		f.notice = genericErrorMessage
		return err
	}
	if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
		f.notice = fail.Message
		return fail
	}

	if err := f.refresh(ctx); err != nil {
		f.s.logger.Warnf("checkout refetch after gift card remove failed: %v", err)
	}
	return nil
}

// =========================
// internals
// =========================

// checkPaymentSelection enforces the two advancement conditions: the method
// still appears in the backend's current list and supports the settlement
// currency. Failing either clears the selection.
func (f *CheckoutFlow) checkPaymentSelection() error {
	if f.paymentMethodID == "" {
		f.fieldErrors["payment"] = "select a payment method"
		return &ValidationError{Fields: []FieldError{{Field: "payment", Message: "is required"}}}
	}
	m := f.current.PaymentMethodByID(f.paymentMethodID)
	if m == nil {
		f.paymentMethodID = ""
		f.fieldErrors["payment"] = "payment method is no longer available"
		return &ValidationError{Fields: []FieldError{{Field: "payment", Message: "is no longer available"}}}
	}
	if !m.SupportsCurrency(f.settlementCurrency()) {
		f.paymentMethodID = ""
		f.fieldErrors["payment"] = "payment method does not support the selected currency"
		return &ValidationError{Fields: []FieldError{{Field: "payment", Message: "does not support the selected currency"}}}
	}
	return nil
}

func (f *CheckoutFlow) settlementCurrency() string {
	if f.current != nil && f.current.CurrencyCode != "" {
		return f.current.CurrencyCode
	}
	return f.s.currency.Current()
}

// resolveCompletionError maps a completion user error to its flow effect.
func (f *CheckoutFlow) resolveCompletionError(ue checkout.UserError) error {
	switch ue.Code {
	case consts.CodePaymentMethodNotFound, consts.CodePaymentMethodInvalid:
		f.paymentMethodID = ""
		f.fieldErrors["payment"] = ue.Message
		f.step = StepPayment
	case consts.CodeCurrencyNotSupported:
		f.step = StepPayment
		f.notice = ue.Message
	case consts.CodePaymentDeclined:
		// Selection preserved so the shopper can retry or switch.
		f.step = StepPayment
		f.notice = ue.Message
	case consts.CodeCheckoutExpired:
		return ErrCheckoutExpired
	case consts.CodeInventoryUnavailable:
		return ErrInventoryUnavailable
	default:
		f.notice = ue.Message
	}
	return &UserFailure{Code: ue.Code, Message: ue.Message}
}

// refresh forces a checkout refetch, bypassing and rewriting the cache
// entry. Called after every mutation that changes server-computed values.
func (f *CheckoutFlow) refresh(ctx context.Context) error {
	cur := f.s.currency.Current()
	f.s.cache.DeleteRef(cache.KindCheckout, f.checkoutID)

	resp, err := f.s.client.Checkout().Get(ctx, &checkout.GetRequest{
		CheckoutID: f.checkoutID,
		Currency:   cur,
	})
	if err != nil {
		return err
	}
	if fail := firstCheckoutFailure(resp.UserErrors); fail != nil {
		return fail
	}
	if resp.Checkout == nil {
		return ErrNoCheckout
	}
	f.setCurrent(resp.Checkout)
	return nil
}

func (f *CheckoutFlow) setCurrent(c *checkout.Checkout) {
	f.current = c
	f.s.cache.Set(cache.Key{Kind: cache.KindCheckout, Ref: c.ID, Currency: f.s.currency.Current()}, c)
}

func (f *CheckoutFlow) advance() {
	i := f.stepIndex()
	if i >= 0 && i+1 < len(f.path) {
		f.step = f.path[i+1]
	}
}

func (f *CheckoutFlow) stepIndex() int {
	for i, st := range f.path {
		if st == f.step {
			return i
		}
	}
	return -1
}

func (f *CheckoutFlow) absorbFieldErrors(err error) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return
	}
	for _, fe := range ve.Fields {
		f.fieldErrors[fe.Field] = fe.Message
	}
}

func (f *CheckoutFlow) clearFieldErrorsWithPrefix(prefix string) {
	for k := range f.fieldErrors {
		if strings.HasPrefix(k, prefix) {
			delete(f.fieldErrors, k)
		}
	}
}

func firstCheckoutFailure(errs []checkout.UserError) *UserFailure {
	if len(errs) == 0 {
		return nil
	}
	return &UserFailure{Code: errs[0].Code, Message: errs[0].Message}
}

// redemptionMessage maps known discount and gift-card codes to stable
// shopper-facing messages, falling back to the backend's own text.
func redemptionMessage(code, fallback string) string {
	switch code {
	case consts.CodeDiscountNotFound:
		return "discount code not found"
	case consts.CodeDiscountExpired:
		return "discount code has expired"
	case consts.CodeDiscountDisabled:
		return "discount code is not active"
	case consts.CodeDiscountAlreadyApplied:
		return "discount code is already applied"
	case consts.CodeGiftCardNotFound:
		return "gift card not found"
	case consts.CodeGiftCardNoBalance:
		return "gift card has no remaining balance"
	case consts.CodeGiftCardAlreadyApplied:
		return "gift card is already applied"
	}
	if fallback != "" {
		return fallback
	}
	return genericErrorMessage
}
