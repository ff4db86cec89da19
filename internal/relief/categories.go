// Package relief encodes the LHDN tax-relief taxonomy: the static category
// catalog with annual limits, the keyword classifier, the per-year category
// cap ledger and the override confirmation state machine.
//
// The limits here mirror the published LHDN individual relief schedule. They
// are configuration, not tax advice: legal correctness beyond these numbers
// is out of scope.
package relief

import (
	"strings"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// SubLimit is a named cap nested inside a category's annual limit, e.g. the
// vaccination cap within Medical. keywords attribute claimed items to the
// sub-limit; an item matching none counts only against the parent limit.
type SubLimit struct {
	Name     string  `json:"name"`
	Limit    float64 `json:"limit"`
	keywords []string
}

// CategoryInfo is one static catalog entry. EligibilityNotes is display and
// audit text only; machine classification never consults it.
type CategoryInfo struct {
	Tag              model.Category `json:"tag"`
	Limit            float64        `json:"limit,omitempty"`
	Unlimited        bool           `json:"unlimited,omitempty"`
	SubLimits        []SubLimit     `json:"subLimits,omitempty"`
	EligibilityNotes string         `json:"eligibilityNotes,omitempty"`
}

var catalog = map[model.Category]CategoryInfo{
	model.CategoryMedical: {
		Tag:   model.CategoryMedical,
		Limit: 10000,
		SubLimits: []SubLimit{
			{Name: "vaccination", Limit: 1000, keywords: []string{"vaccin", "immunis", "immuniz"}},
			{Name: "full medical check-up", Limit: 1000, keywords: []string{"medical check", "check-up", "health screening"}},
		},
		EligibilityNotes: "Medical treatment for self, spouse or child, including serious diseases, fertility treatment, vaccination (capped) and full medical check-up (capped). Vitamins and supplements are not claimable.",
	},
	model.CategoryLifestyle: {
		Tag:              model.CategoryLifestyle,
		Limit:            2500,
		EligibilityNotes: "Purchase of personal computer, smartphone or tablet, internet subscription, and self-enrichment courses for self, spouse or child.",
	},
	model.CategoryBooks: {
		Tag:              model.CategoryBooks,
		Limit:            2500,
		EligibilityNotes: "Purchase of books, journals, magazines and printed newspapers (banned publications excluded).",
	},
	model.CategorySports: {
		Tag:              model.CategorySports,
		Limit:            1000,
		EligibilityNotes: "Sports equipment for activities defined under the Sports Development Act 1997, gym membership and competition entry fees.",
	},
	model.CategoryEducation: {
		Tag:              model.CategoryEducation,
		Limit:            7000,
		EligibilityNotes: "Self-education fees for recognised courses of study at tertiary level or for skill improvement.",
	},
	model.CategoryChildcare: {
		Tag:              model.CategoryChildcare,
		Limit:            3000,
		EligibilityNotes: "Fees paid to a registered childcare centre or kindergarten for a child aged 6 and below.",
	},
	model.CategoryOthers: {
		Tag:              model.CategoryOthers,
		Unlimited:        true,
		EligibilityNotes: "Items the user tracks for relief outside the capped categories; no statutory limit is enforced here.",
	},
}

// Catalog returns the static category entries in display order.
func Catalog() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(catalog))
	for _, tag := range model.Categories() {
		out = append(out, catalog[tag])
	}
	return out
}

// CatalogEntry looks up one category's entry. ok is false for tags outside
// the catalog.
func CatalogEntry(tag model.Category) (CategoryInfo, bool) {
	info, ok := catalog[tag]
	return info, ok
}

// subLimitName attributes an item to one of its category's sub-limits by
// keyword match, or "" when the item counts only against the parent limit.
func subLimitName(tag model.Category, itemName string) string {
	lower := strings.ToLower(itemName)
	for _, sub := range catalog[tag].SubLimits {
		for _, kw := range sub.keywords {
			if strings.Contains(lower, kw) {
				return sub.Name
			}
		}
	}
	return ""
}
