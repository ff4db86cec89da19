package relief

import (
	"regexp"
	"strings"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// Proposal is a classification result: the category to attach and whether it
// came from the keyword heuristic rather than an explicit user action.
type Proposal struct {
	Tag          model.Category `json:"tag"`
	AutoAssigned bool           `json:"autoAssigned"`
}

// keywordRules is an ordered list so classification stays deterministic when
// an item name matches keywords from more than one category.
var keywordRules = []struct {
	keyword string
	tag     model.Category
}{
	{"vaccin", model.CategoryMedical},
	{"clinic", model.CategoryMedical},
	{"hospital", model.CategoryMedical},
	{"dental", model.CategoryMedical},
	{"medical check", model.CategoryMedical},
	{"x-ray", model.CategoryMedical},
	{"physiotherapy", model.CategoryMedical},
	{"consultation", model.CategoryMedical},
	{"prescription", model.CategoryMedical},

	{"textbook", model.CategoryBooks},
	{"buku", model.CategoryBooks},
	{"magazine", model.CategoryBooks},
	{"journal", model.CategoryBooks},
	{"newspaper", model.CategoryBooks},

	{"gym", model.CategorySports},
	{"badminton", model.CategorySports},
	{"futsal", model.CategorySports},
	{"racket", model.CategorySports},
	{"treadmill", model.CategorySports},
	{"sports", model.CategorySports},

	{"tuition", model.CategoryEducation},
	{"course fee", model.CategoryEducation},
	{"semester", model.CategoryEducation},
	{"exam fee", model.CategoryEducation},

	{"kindergarten", model.CategoryChildcare},
	{"childcare", model.CategoryChildcare},
	{"taska", model.CategoryChildcare},
	{"tadika", model.CategoryChildcare},

	{"laptop", model.CategoryLifestyle},
	{"smartphone", model.CategoryLifestyle},
	{"tablet", model.CategoryLifestyle},
	{"internet", model.CategoryLifestyle},
	{"broadband", model.CategoryLifestyle},
}

// wholeWordRules match only as standalone words. "book" as a substring would
// drag "Notebook" and "Facebook" into reading material, so it needs word
// boundaries; substring rules stay cheap for keywords with no such collisions.
var wholeWordRules = []struct {
	pattern *regexp.Regexp
	tag     model.Category
}{
	{regexp.MustCompile(`\bbooks?\b`), model.CategoryBooks},
}

// Classify determines the relief tag for a line item. An explicit tag from
// the caller is used verbatim with AutoAssigned false; otherwise the keyword
// heuristic may propose one with AutoAssigned true. The heuristic is an
// import-time convenience, always user-overridable, never the sole authority.
// ok is false when neither path produced a tag.
func Classify(name string, explicitTag model.Category) (Proposal, bool) {
	if explicitTag != "" {
		return Proposal{Tag: explicitTag, AutoAssigned: false}, true
	}

	lower := strings.ToLower(name)
	for _, rule := range keywordRules {
		if strings.Contains(lower, rule.keyword) {
			return Proposal{Tag: rule.tag, AutoAssigned: true}, true
		}
	}
	for _, rule := range wholeWordRules {
		if rule.pattern.MatchString(lower) {
			return Proposal{Tag: rule.tag, AutoAssigned: true}, true
		}
	}
	return Proposal{}, false
}

// Per-category deny lists for the typicality check. An entry names a keyword
// and the display reason shown when it matches.
var denyRules = map[model.Category][]struct {
	keyword string
	reason  string
}{
	model.CategoryMedical: {
		{"vitamin", "vitamins and dietary supplements are not claimable as medical relief"},
		{"supplement", "vitamins and dietary supplements are not claimable as medical relief"},
		{"multivitamin", "vitamins and dietary supplements are not claimable as medical relief"},
		{"collagen", "beauty and wellness products are not claimable as medical relief"},
		{"protein powder", "fitness supplements are not claimable as medical relief"},
		{"cosmetic", "cosmetic products and procedures are not claimable as medical relief"},
		{"spa", "spa and wellness treatments are not claimable as medical relief"},
	},
	model.CategoryBooks: {
		{"e-wallet", "non-publication purchases are not claimable as reading material"},
		{"stationery", "stationery is not claimable as reading material"},
		{"comic rental", "rentals are not purchases of reading material"},
	},
	model.CategorySports: {
		{"sportswear", "apparel is generally excluded from sports equipment relief"},
		{"jersey", "apparel is generally excluded from sports equipment relief"},
		{"shoes", "footwear is generally excluded from sports equipment relief"},
	},
	model.CategoryLifestyle: {
		{"game console", "game consoles are excluded from lifestyle relief"},
		{"console", "game consoles are excluded from lifestyle relief"},
		{"smartwatch", "smartwatches are excluded from lifestyle relief"},
	},
}

// Per-category allow lists override the deny lists. Vaccination stays
// claimable under Medical even though it often appears alongside pharmacy
// items that are not.
var allowRules = map[model.Category][]string{
	model.CategoryMedical: {"vaccin", "immunis", "immuniz", "medical check", "health screening"},
}

// IsTypicallyIneligible reports whether an item name is usually not
// claimable under the given tag. It returns a human-readable reason for UI
// display, or "" when the item looks fine. Advisory only: it never mutates
// state, and intentional overrides remain supported through the confirmation
// flow.
func IsTypicallyIneligible(name string, tag model.Category) string {
	lower := strings.ToLower(name)

	for _, allowed := range allowRules[tag] {
		if strings.Contains(lower, allowed) {
			return ""
		}
	}
	for _, rule := range denyRules[tag] {
		if strings.Contains(lower, rule.keyword) {
			return rule.reason
		}
	}
	return ""
}
