package domain

import "strings"

// OrderStatus is the canonical (English, WooCommerce-vocabulary) order status.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment; also the safe
	// fallback for untranslatable inputs.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates payment cleared and fulfilment started.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusOnHold indicates the order is paused awaiting action.
	OrderStatusOnHold OrderStatus = "on-hold"
	// OrderStatusCompleted indicates the order is fulfilled.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates the order was refunded.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusFailed indicates payment failed or was declined.
	OrderStatusFailed OrderStatus = "failed"
	// OrderStatusAutoDraft is the remote store's unsaved draft marker.
	OrderStatusAutoDraft OrderStatus = "auto-draft"
	// OrderStatusCheckoutDraft is the remote store's abandoned checkout marker.
	OrderStatusCheckoutDraft OrderStatus = "checkout-draft"
)

// PlatformOther is the sentinel originating-platform value for records that
// have no remote-store counterpart; remote updates are skipped for it.
const PlatformOther = "other"

var canonicalStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:       {},
	OrderStatusProcessing:    {},
	OrderStatusOnHold:        {},
	OrderStatusCompleted:     {},
	OrderStatusCancelled:     {},
	OrderStatusRefunded:      {},
	OrderStatusFailed:        {},
	OrderStatusAutoDraft:     {},
	OrderStatusCheckoutDraft: {},
}

// spanishStatuses maps the content store's Spanish vocabulary onto the
// canonical set. Both vocabularies stay 1:1 translatable.
var spanishStatuses = map[string]OrderStatus{
	"pendiente":   OrderStatusPending,
	"procesando":  OrderStatusProcessing,
	"en_espera":   OrderStatusOnHold,
	"completado":  OrderStatusCompleted,
	"cancelado":   OrderStatusCancelled,
	"reembolsado": OrderStatusRefunded,
	"fallido":     OrderStatusFailed,
}

// statusToSpanish is the reverse mapping used when writing the content store's
// display fields. Draft statuses have no Spanish counterpart and map to pending.
var statusToSpanish = map[OrderStatus]string{
	OrderStatusPending:       "pendiente",
	OrderStatusProcessing:    "procesando",
	OrderStatusOnHold:        "en_espera",
	OrderStatusCompleted:     "completado",
	OrderStatusCancelled:     "cancelado",
	OrderStatusRefunded:      "reembolsado",
	OrderStatusFailed:        "fallido",
	OrderStatusAutoDraft:     "pendiente",
	OrderStatusCheckoutDraft: "pendiente",
}

// NormalizeStatus translates an order status of either vocabulary (or a loose
// spelling of one) into the canonical English set. Unrecognized inputs fall
// back to "pending" and report ok=false so callers can log them. The function
// is idempotent: canonical outputs always normalize to themselves.
func NormalizeStatus(input string) (OrderStatus, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	cleaned = strings.TrimPrefix(cleaned, "wc-")

	if _, ok := canonicalStatuses[OrderStatus(cleaned)]; ok {
		return OrderStatus(cleaned), true
	}

	// The content store and legacy imports vary separators.
	flattened := strings.NewReplacer(" ", "_", "-", "_").Replace(cleaned)
	if status, ok := spanishStatuses[flattened]; ok {
		return status, true
	}

	// English statuses occasionally arrive underscore-separated.
	hyphenated := strings.ReplaceAll(flattened, "_", "-")
	if _, ok := canonicalStatuses[OrderStatus(hyphenated)]; ok {
		return OrderStatus(hyphenated), true
	}

	return OrderStatusPending, false
}

// ValidOrderStatus reports whether the value belongs to the canonical set.
func ValidOrderStatus(status OrderStatus) bool {
	_, ok := canonicalStatuses[status]
	return ok
}

// StatusToSpanish returns the content store spelling for a canonical status.
func StatusToSpanish(status OrderStatus) string {
	if spanish, ok := statusToSpanish[status]; ok {
		return spanish
	}
	return "pendiente"
}

const (
	// DefaultOrigin is assumed when an order's origin cannot be recognized.
	DefaultOrigin = "web"
	// DefaultPaymentMethod is assumed when a payment method cannot be
	// recognized. Inherited from the store configuration; confirm with the
	// commerce team before changing.
	DefaultPaymentMethod = "bacs"
)

var canonicalOrigins = map[string]struct{}{
	"web":   {},
	"pos":   {},
	"phone": {},
	"other": {},
}

var originSynonyms = map[string]string{
	"tienda":      "web",
	"online":      "web",
	"woocommerce": "web",
	"local":       "pos",
	"presencial":  "pos",
	"caja":        "pos",
	"telefono":    "phone",
	"llamada":     "phone",
	"otro":        "other",
}

// NormalizeOrigin maps an order origin onto the canonical set, defaulting to
// "web" for unrecognized values.
func NormalizeOrigin(input string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	if _, ok := canonicalOrigins[cleaned]; ok {
		return cleaned, true
	}
	if origin, ok := originSynonyms[cleaned]; ok {
		return origin, true
	}
	return DefaultOrigin, false
}

var canonicalPaymentMethods = map[string]struct{}{
	"bacs":   {},
	"cod":    {},
	"cheque": {},
	"cash":   {},
	"card":   {},
	"webpay": {},
}

var paymentMethodSynonyms = map[string]string{
	"transferencia":          "bacs",
	"transferencia_bancaria": "bacs",
	"transfer":               "bacs",
	"efectivo":               "cash",
	"contra_entrega":         "cod",
	"tarjeta":                "card",
	"debito":                 "card",
	"credito":                "card",
}

// NormalizePaymentMethod maps a payment method onto the canonical set,
// defaulting to "bacs" for unrecognized values.
func NormalizePaymentMethod(input string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	cleaned = strings.NewReplacer(" ", "_", "-", "_").Replace(cleaned)
	if _, ok := canonicalPaymentMethods[cleaned]; ok {
		return cleaned, true
	}
	if method, ok := paymentMethodSynonyms[cleaned]; ok {
		return method, true
	}
	return DefaultPaymentMethod, false
}
