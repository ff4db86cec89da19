// Package model defines the canonical receipt and line-item types shared by
// the extraction, relief and storage layers.
package model

import "time"

// Category is an LHDN tax-relief category tag.
type Category string

const (
	CategoryMedical   Category = "Medical"
	CategoryLifestyle Category = "Lifestyle"
	CategoryBooks     Category = "Books"
	CategorySports    Category = "Sports"
	CategoryEducation Category = "Education"
	CategoryChildcare Category = "Childcare"
	CategoryOthers    Category = "Others"
)

// Categories lists every known relief category in display order.
func Categories() []Category {
	return []Category{
		CategoryMedical,
		CategoryLifestyle,
		CategoryBooks,
		CategorySports,
		CategoryEducation,
		CategoryChildcare,
		CategoryOthers,
	}
}

// VerificationStatus is set by a downstream review collaborator. The core
// preserves it and never overwrites it on edit.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// FieldConfidence holds the highest extraction confidence seen per logical
// field. Advisory only: it drives UI warnings and never blocks saving.
type FieldConfidence struct {
	Merchant    float64 `json:"merchant" firestore:"merchant"`
	Date        float64 `json:"date" firestore:"date"`
	TotalAmount float64 `json:"totalAmount" firestore:"totalAmount"`
	LineItems   float64 `json:"lineItems" firestore:"lineItems"`
	Tax         float64 `json:"tax" firestore:"tax"`
}

// ClaimStatus couples the claimable flag with its tag and provenance so a
// non-claimable item can never carry an orphaned tag. Mutate it only through
// Claim and ClearClaim.
type ClaimStatus struct {
	Claimable    bool     `json:"claimable" firestore:"claimable"`
	Tag          Category `json:"tag,omitempty" firestore:"tag,omitempty"`
	AutoAssigned bool     `json:"autoAssigned,omitempty" firestore:"autoAssigned,omitempty"`
}

// Claim marks the status claimable under tag. autoAssigned records whether
// the tag came from a heuristic rather than an explicit user action.
func (c *ClaimStatus) Claim(tag Category, autoAssigned bool) {
	c.Claimable = true
	c.Tag = tag
	c.AutoAssigned = autoAssigned
}

// ClearClaim excludes the item, wiping tag and autoAssigned in the same
// transition.
func (c *ClaimStatus) ClearClaim() {
	c.Claimable = false
	c.Tag = ""
	c.AutoAssigned = false
}

// LineItem is a single purchasable line on a receipt.
type LineItem struct {
	ID        string  `json:"id" firestore:"id"`
	Name      string  `json:"name" firestore:"name"`
	Quantity  int     `json:"quantity" firestore:"quantity"`
	UnitPrice float64 `json:"unitPrice" firestore:"unitPrice"`

	Claim ClaimStatus `json:"claim" firestore:"claim"`

	// ProductTags are free-form display labels from the product
	// categorization helper. They carry no tax meaning.
	ProductTags []string `json:"productTags,omitempty" firestore:"productTags,omitempty"`
}

// Amount is always derived, never stored, so it cannot drift from its inputs.
func (li LineItem) Amount() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

// NormalizedReceipt is the canonical output of extraction normalization.
// It is a mutable draft until committed as a Receipt.
type NormalizedReceipt struct {
	Merchant        string  `json:"merchant"`
	MerchantAddress string  `json:"merchantAddress,omitempty"`
	Date            string  `json:"date"` // ISO 8601, YYYY-MM-DD
	Currency        string  `json:"currency,omitempty"`
	TotalAmount     float64 `json:"totalAmount"`
	Subtotal        float64 `json:"subtotal,omitempty"`
	TaxAmount       float64 `json:"taxAmount,omitempty"`
	TaxRatePercent  float64 `json:"taxRatePercent,omitempty"`
	ServiceCharge   float64 `json:"serviceCharge,omitempty"`
	Rounding        float64 `json:"rounding,omitempty"`

	Items      []LineItem      `json:"items"`
	Confidence FieldConfidence `json:"confidence"`
}

// Receipt is the committed, persisted unit.
type Receipt struct {
	ID     string `json:"id" firestore:"id"`
	UserID string `json:"userId" firestore:"userId"`

	Merchant        string  `json:"merchant" firestore:"merchant"`
	MerchantAddress string  `json:"merchantAddress,omitempty" firestore:"merchantAddress,omitempty"`
	Date            string  `json:"date" firestore:"date"` // ISO 8601, YYYY-MM-DD
	Currency        string  `json:"currency,omitempty" firestore:"currency,omitempty"`
	TotalAmount     float64 `json:"totalAmount" firestore:"totalAmount"`
	Subtotal        float64 `json:"subtotal,omitempty" firestore:"subtotal,omitempty"`
	TaxAmount       float64 `json:"taxAmount,omitempty" firestore:"taxAmount,omitempty"`
	TaxRatePercent  float64 `json:"taxRatePercent,omitempty" firestore:"taxRatePercent,omitempty"`
	ServiceCharge   float64 `json:"serviceCharge,omitempty" firestore:"serviceCharge,omitempty"`
	Rounding        float64 `json:"rounding,omitempty" firestore:"rounding,omitempty"`

	Items []LineItem `json:"items" firestore:"items"`

	PaymentMethod string `json:"paymentMethod,omitempty" firestore:"paymentMethod,omitempty"`
	Notes         string `json:"notes,omitempty" firestore:"notes,omitempty"`

	// Tags are coarse receipt-level classifications, distinct from the
	// per-item tags that drive the cap ledger.
	Tags      []Category `json:"tags,omitempty" firestore:"tags,omitempty"`
	Claimable bool       `json:"claimable" firestore:"claimable"`

	VerificationStatus VerificationStatus `json:"verificationStatus" firestore:"verificationStatus"`

	Confidence FieldConfidence `json:"confidence" firestore:"confidence"`

	UploadedAt time.Time `json:"uploadedAt" firestore:"uploadedAt"`
}

// Year returns the assessment year of the receipt date, or 0 if the date is
// not a well-formed ISO string.
func (r Receipt) Year() int {
	t, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return 0
	}
	return t.Year()
}

// UserProfile carries the per-user running values that support pre-save
// checks, independent of the full ledger recomputation.
type UserProfile struct {
	ID           string  `json:"id" firestore:"id"`
	Year         int     `json:"year" firestore:"year"`
	LifestyleYTD float64 `json:"lifestyleYtd" firestore:"lifestyleYtd"`
}
