// Package extraction normalizes OCR entity-extraction output into the
// canonical receipt model and reconciles its monetary fields.
package extraction

// Entity kinds produced by the extraction service. Different processor
// versions emit different synonyms for the same logical field; the
// normalizer folds them into one bucket per field and ignores kinds it
// does not know about.
const (
	KindSupplierName    = "supplier_name"
	KindMerchantName    = "merchant_name"
	KindSupplierAddress = "supplier_address"
	KindReceiptDate     = "receipt_date"
	KindDate            = "date"
	KindTotalAmount     = "total_amount"
	KindTotal           = "total"
	KindNetAmount       = "net_amount"
	KindSubtotal        = "subtotal"
	KindTaxAmount       = "tax_amount"
	KindTotalTaxAmount  = "total_tax_amount"
	KindServiceCharge   = "service_charge"
	KindRounding        = "rounding"
	KindRoundingAmount  = "rounding_amount"
	KindCurrency        = "currency"
	KindLineItem        = "line_item"

	// Child kinds under line_item.
	KindDescription        = "description"
	KindProductDescription = "product-description"
	KindQuantity           = "quantity"
	KindUnitPrice          = "unit_price"
	KindAmount             = "amount"
)

// MoneyValue is the structured money representation: integer major units
// plus fractional nanos, as the extraction service serializes it (units as a
// decimal string).
type MoneyValue struct {
	CurrencyCode string `json:"currencyCode,omitempty"`
	Units        string `json:"units,omitempty"`
	Nanos        int64  `json:"nanos,omitempty"`
}

// DateValue is the structured date representation.
type DateValue struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// NormalizedValue is the optional typed value attached to an entity: money,
// date, or plain text.
type NormalizedValue struct {
	Text       string      `json:"text,omitempty"`
	MoneyValue *MoneyValue `json:"moneyValue,omitempty"`
	DateValue  *DateValue  `json:"dateValue,omitempty"`
}

// Entity is one field recognized by the extraction service. Entities are
// read-only evidence: produced once per extraction call, never mutated.
type Entity struct {
	Kind            string           `json:"type"`
	Text            string           `json:"mentionText,omitempty"`
	Confidence      float64          `json:"confidence"`
	NormalizedValue *NormalizedValue `json:"normalizedValue,omitempty"`

	// Properties holds child entities. Only line_item entities use it,
	// for sub-fields like description, quantity and unit price.
	Properties []Entity `json:"properties,omitempty"`
}

// money returns the structured money value if present.
func (e Entity) money() *MoneyValue {
	if e.NormalizedValue == nil {
		return nil
	}
	return e.NormalizedValue.MoneyValue
}

// date returns the structured date value if present.
func (e Entity) date() *DateValue {
	if e.NormalizedValue == nil {
		return nil
	}
	return e.NormalizedValue.DateValue
}

// normalizedText returns the normalized plain-text value, falling back to
// the verbatim mention text.
func (e Entity) normalizedText() string {
	if e.NormalizedValue != nil && e.NormalizedValue.Text != "" {
		return e.NormalizedValue.Text
	}
	return e.Text
}
