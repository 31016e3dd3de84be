package go_storefront

import (
	"regexp"
	"strings"

	"github.com/merchkit/go-storefront/checkout"
)

// Form-level validation for the checkout flow. These checks always run
// before the corresponding remote call; invalid input never reaches the
// backend, not even partially.

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// validPhone accepts 9 to 15 digits with an optional leading +.
// Common separators (spaces, dashes, parentheses, dots) are stripped first;
// the digit-count rule applies to significant digits.
func validPhone(phone string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
	cleaned = strings.TrimPrefix(cleaned, "+")
	if len(cleaned) < 9 || len(cleaned) > 15 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateContact(email, phone string) error {
	ve := &ValidationError{}
	if !validEmail(email) {
		ve.Add("email", "must be a valid email address")
	}
	if !validPhone(phone) {
		ve.Add("phone", "must be 9-15 digits, optionally starting with +")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// validateAddress checks the required postal fields. Field keys are scoped
// by prefix ("shipping" or "billing") so the UI can place them inline, e.g.
// a missing city under prefix "shipping" is keyed "shipping_city".
func validateAddress(a *checkout.Address, prefix string) error {
	ve := &ValidationError{}
	if a == nil {
		ve.Add(prefix, "address is required")
		return ve
	}
	if strings.TrimSpace(a.FirstName) == "" {
		ve.Add(prefix+"_first_name", "is required")
	}
	if strings.TrimSpace(a.LastName) == "" {
		ve.Add(prefix+"_last_name", "is required")
	}
	if strings.TrimSpace(a.Address1) == "" {
		ve.Add(prefix+"_address1", "is required")
	}
	if strings.TrimSpace(a.City) == "" {
		ve.Add(prefix+"_city", "is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		ve.Add(prefix+"_country", "is required")
	}
	if strings.TrimSpace(a.Zip) == "" {
		ve.Add(prefix+"_zip", "is required")
	}
	if a.Phone != nil && strings.TrimSpace(*a.Phone) != "" && !validPhone(*a.Phone) {
		ve.Add(prefix+"_phone", "must be 9-15 digits, optionally starting with +")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}
