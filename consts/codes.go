package consts

// UserErrorCode is a machine-readable business failure code.
//
// Values are taken from the commerce API documentation.
type UserErrorCode = string

// Stale-entity codes. Mutations against an entity the backend no longer
// holds return one of these (or a plain HTTP 404).
const (
	CodeCartNotFound     UserErrorCode = "CART_NOT_FOUND"
	CodeCheckoutNotFound UserErrorCode = "CHECKOUT_NOT_FOUND"
)

// Completion codes.
const (
	CodeCheckoutExpired       UserErrorCode = "CHECKOUT_EXPIRED"
	CodePaymentMethodNotFound UserErrorCode = "PAYMENT_METHOD_NOT_FOUND"
	CodePaymentMethodInvalid  UserErrorCode = "PAYMENT_METHOD_INVALID"
	CodeCurrencyNotSupported  UserErrorCode = "CURRENCY_NOT_SUPPORTED"
	CodePaymentDeclined       UserErrorCode = "PAYMENT_DECLINED"
	CodeInventoryUnavailable  UserErrorCode = "INVENTORY_UNAVAILABLE"
)

// Discount and gift-card codes.
const (
	CodeDiscountNotFound       UserErrorCode = "DISCOUNT_NOT_FOUND"
	CodeDiscountExpired        UserErrorCode = "DISCOUNT_EXPIRED"
	CodeDiscountDisabled       UserErrorCode = "DISCOUNT_DISABLED"
	CodeDiscountAlreadyApplied UserErrorCode = "DISCOUNT_ALREADY_APPLIED"
	CodeGiftCardNotFound       UserErrorCode = "GIFT_CARD_NOT_FOUND"
	CodeGiftCardNoBalance      UserErrorCode = "GIFT_CARD_NO_BALANCE"
	CodeGiftCardAlreadyApplied UserErrorCode = "GIFT_CARD_ALREADY_APPLIED"
)
