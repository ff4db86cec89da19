package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

const (
	// LowConfidenceThreshold marks fields that should get a review
	// warning in the UI. Advisory only; never blocks saving.
	LowConfidenceThreshold = 0.9

	// synthesizedItemConfidence is attached to the line-item field when
	// the single "Receipt Total" item had to be synthesized, so the UI
	// still flags it for review.
	synthesizedItemConfidence = 0.3

	// derivedMerchantConfidence is attached to a merchant name recovered
	// from the address first line rather than a merchant entity. Kept
	// below LowConfidenceThreshold so review flags it.
	derivedMerchantConfidence = 0.3

	// SynthesizedItemName names the line item synthesized from the
	// receipt total when no items were extracted.
	SynthesizedItemName = "Receipt Total"
)

var (
	longNumbers  = regexp.MustCompile(`\d{6,}`)
	specialChars = regexp.MustCompile(`[*#]+`)
)

// field accumulates the best entity seen so far for one logical field.
// Replace only on strictly higher confidence: equal-confidence ties keep the
// first-seen entity, which makes the scan deterministic in the extraction
// service's own entity order.
type field struct {
	entity Entity
	set    bool
}

func (f *field) offer(e Entity) {
	if !f.set || e.Confidence > f.entity.Confidence {
		f.entity = e
		f.set = true
	}
}

// Normalize maps a raw entity list into the canonical receipt draft. It is a
// pure function over its input: normalizing the same entities twice yields
// identical output, and the input entities are never mutated.
func Normalize(entities []Entity) model.NormalizedReceipt {
	var merchant, address, date, total, subtotal, tax, serviceCharge, rounding, currency field
	var items []model.LineItem
	var itemConfidence float64

	for _, e := range entities {
		switch e.Kind {
		case KindSupplierName, KindMerchantName:
			merchant.offer(e)
		case KindSupplierAddress:
			address.offer(e)
		case KindReceiptDate, KindDate:
			date.offer(e)
		case KindTotalAmount, KindTotal, KindNetAmount:
			total.offer(e)
		case KindSubtotal:
			subtotal.offer(e)
		case KindTaxAmount, KindTotalTaxAmount:
			tax.offer(e)
		case KindServiceCharge:
			serviceCharge.offer(e)
		case KindRounding, KindRoundingAmount:
			rounding.offer(e)
		case KindCurrency:
			currency.offer(e)
		case KindLineItem:
			if item, ok := expandLineItem(e, len(items)+1); ok {
				items = append(items, item)
				if e.Confidence > itemConfidence {
					itemConfidence = e.Confidence
				}
			}
		default:
			// Unknown kind from a newer extraction schema; skip.
		}
	}

	r := model.NormalizedReceipt{Items: items}

	if merchant.set {
		r.Merchant = formatMerchantName(merchant.entity.normalizedText())
		r.Confidence.Merchant = merchant.entity.Confidence
	}
	if address.set {
		r.MerchantAddress = strings.TrimSpace(address.entity.normalizedText())
	}
	if date.set {
		r.Date = DateISO(date.entity)
		r.Confidence.Date = date.entity.Confidence
	} else {
		r.Date = DateISO(Entity{})
	}
	if total.set {
		r.TotalAmount = MoneyAmount(total.entity)
		r.Confidence.TotalAmount = total.entity.Confidence
		r.Currency = EntityCurrency(total.entity)
	}
	if subtotal.set {
		r.Subtotal = MoneyAmount(subtotal.entity)
	}
	if tax.set {
		r.TaxAmount = MoneyAmount(tax.entity)
		r.Confidence.Tax = tax.entity.Confidence
	}
	if serviceCharge.set {
		r.ServiceCharge = MoneyAmount(serviceCharge.entity)
	}
	if rounding.set {
		r.Rounding = MoneyAmount(rounding.entity)
	}
	if currency.set && r.Currency == "" {
		r.Currency = strings.ToUpper(strings.TrimSpace(currency.entity.normalizedText()))
	}
	r.Confidence.LineItems = itemConfidence

	applyFallbacks(&r, merchant.set)

	return r
}

// applyFallbacks fills fields that are still empty after the entity scan.
func applyFallbacks(r *model.NormalizedReceipt, merchantSet bool) {
	// Merchant name falls back to the first line of the address.
	if !merchantSet && r.MerchantAddress != "" {
		first := r.MerchantAddress
		if idx := strings.IndexByte(first, '\n'); idx >= 0 {
			first = first[:idx]
		}
		r.Merchant = formatMerchantName(first)
		r.Confidence.Merchant = derivedMerchantConfidence
	}

	// A positive total with zero extracted items synthesizes a single
	// catch-all item so the receipt stays editable, at a deliberately low
	// confidence so review still flags it.
	if len(r.Items) == 0 && r.TotalAmount > 0 {
		r.Items = []model.LineItem{{
			ID:        "item-1",
			Name:      SynthesizedItemName,
			Quantity:  1,
			UnitPrice: r.TotalAmount,
		}}
		r.Confidence.LineItems = synthesizedItemConfidence
	}
}

// expandLineItem walks a line_item entity's children into a LineItem. Items
// with no name or a zero unit price are noise, not data, and are dropped.
func expandLineItem(e Entity, ordinal int) (model.LineItem, bool) {
	var name string
	quantity := 1
	var unitPrice, amount float64

	for _, p := range e.Properties {
		switch p.Kind {
		case KindDescription, KindProductDescription:
			if name == "" {
				name = strings.TrimSpace(p.normalizedText())
			}
		case KindQuantity:
			if q, err := strconv.Atoi(strings.TrimSpace(p.normalizedText())); err == nil && q >= 1 {
				quantity = q
			}
		case KindUnitPrice:
			unitPrice = MoneyAmount(p)
		case KindAmount:
			amount = MoneyAmount(p)
		}
	}

	// The line amount is only trusted when no unit price was read.
	if unitPrice == 0 && amount > 0 {
		unitPrice = amount / float64(quantity)
	}

	if name == "" || unitPrice <= 0 {
		return model.LineItem{}, false
	}

	return model.LineItem{
		ID:        fmt.Sprintf("item-%d", ordinal),
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}, true
}

var (
	merchantPrefix = regexp.MustCompile(`(?i)^(pos |eftpos |visa |mastercard |amex )`)
	titleCaser     = cases.Title(language.English)
)

// formatMerchantName cleans a raw merchant string for display: card-terminal
// prefixes, long reference numbers and separator junk go, words get title
// case.
func formatMerchantName(raw string) string {
	cleaned := merchantPrefix.ReplaceAllString(raw, "")
	cleaned = longNumbers.ReplaceAllString(cleaned, "")
	cleaned = specialChars.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	words := strings.Fields(cleaned)
	for i, word := range words {
		if len(word) > 2 {
			words[i] = titleCaser.String(strings.ToLower(word))
		} else {
			words[i] = strings.ToUpper(word)
		}
	}

	result := strings.Join(words, " ")
	if len(result) > 60 {
		result = result[:60]
	}
	return result
}
