package go_storefront

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/merchkit/go-storefront/internal/httpclient"
)

// ValidationError indicates that a request is missing required fields or contains invalid data.
// Validation runs client-side, before any remote call is issued.
type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation error"
	}
	if len(e.Fields) == 1 {
		fe := e.Fields[0]
		if fe.Field == "" {
			return fmt.Sprintf("validation error: %s", fe.Message)
		}
		return fmt.Sprintf("validation error: %s: %s", fe.Field, fe.Message)
	}
	return fmt.Sprintf("validation error: %d fields", len(e.Fields))
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// IsValidationError checks whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// APIError represents a non-2xx response from the commerce backend.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return "storefront api error"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("storefront api error: status %d", e.StatusCode)
	}
	b := e.Body
	if len(b) > 1024 {
		b = b[:1024]
	}
	return fmt.Sprintf("storefront api error: status %d: %s", e.StatusCode, string(b))
}

// UserFailure is a backend-reported business error promoted to a Go error.
// The first entry of an operation's user-error list becomes the message.
type UserFailure struct {
	Code    string
	Message string
}

func (e *UserFailure) Error() string {
	if e == nil {
		return "user error"
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Terminal checkout-completion failures. The flow cannot recover from these;
// the shopper restarts or returns to the cart.
var (
	ErrCheckoutExpired      = errors.New("checkout session has expired")
	ErrInventoryUnavailable = errors.New("items are no longer available, review your cart")
	// ErrUnexpectedCompletion covers a completion response with no payment
	// URL, no order and no user errors. Treated as a backend contract
	// violation.
	ErrUnexpectedCompletion = errors.New("checkout completion returned no outcome")
)

// ErrEmptyCart is returned when a checkout is begun without cart lines.
var ErrEmptyCart = errors.New("cart is empty")

// IsNotFound reports whether err is a transport-level not-found response.
// Together with the stale-entity user-error codes it classifies the
// "not-found-class" failures that trigger identity recovery.
func IsNotFound(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusNotFound
	}
	var hs *httpclient.HTTPStatusError
	if errors.As(err, &hs) {
		return hs.StatusCode == http.StatusNotFound
	}
	return false
}
