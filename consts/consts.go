package consts

const (
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"
)

// Base URLs.
const (
	DefaultBaseURL = "https://api-sandbox.merchkit.dev" // test
	ProductionURL  = "https://api.merchkit.dev"         // prod
)

// Cart endpoint paths.
const (
	CartCreatePath     = "/v1/cart/create"
	CartGetPath        = "/v1/cart/get"
	CartAddLinesPath   = "/v1/cart/lines/add"
	CartUpdateLinePath = "/v1/cart/lines/update"
	CartRemoveLinePath = "/v1/cart/lines/remove"
)

// Checkout endpoint paths.
const (
	CheckoutCreatePath          = "/v1/checkout/create"
	CheckoutGetPath             = "/v1/checkout/get"
	CheckoutEmailPath           = "/v1/checkout/email"
	CheckoutShippingAddressPath = "/v1/checkout/shipping-address"
	CheckoutBillingAddressPath  = "/v1/checkout/billing-address"
	CheckoutShippingLinePath    = "/v1/checkout/shipping-line"
	CheckoutDiscountApplyPath   = "/v1/checkout/discount/apply"
	CheckoutDiscountRemovePath  = "/v1/checkout/discount/remove"
	CheckoutGiftCardApplyPath   = "/v1/checkout/gift-card/apply"
	CheckoutGiftCardRemovePath  = "/v1/checkout/gift-card/remove"
	CheckoutCompletePath        = "/v1/checkout/complete"
)

// Catalog endpoint paths.
const (
	CatalogProductPath = "/v1/catalog/product"
	CatalogListPath    = "/v1/catalog/list"
)

// Product types with special handling.
const (
	ProductTypeGiftCard = "GIFT_CARD"
)

// Payment method types with special handling.
const (
	PaymentTypeBankTransfer = "BANK_TRANSFER"
)

// Storage namespace for the persisted cart identity.
const IdentityNamespace = "storefront:cart:id"
