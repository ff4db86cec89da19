package relief

import "github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"

// LedgerEntry is the per-category claim position for one assessment year.
// Claimed is the true accumulated amount and is never clamped to the limit;
// a breach is reported through Exceeded and Excess so reports always show
// ground truth.
type LedgerEntry struct {
	Category  model.Category  `json:"category"`
	Claimed   float64         `json:"claimed"`
	Limit     float64         `json:"limit,omitempty"`
	Unlimited bool            `json:"unlimited,omitempty"`
	Remaining float64         `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
	Excess    float64         `json:"excess,omitempty"`
	SubLimits []SubLimitEntry `json:"subLimits,omitempty"`
}

// SubLimitEntry is the claim position against one named sub-limit nested in a
// category, e.g. vaccination within Medical. Amounts counted here also count
// against the parent category's limit.
type SubLimitEntry struct {
	Name      string  `json:"name"`
	Claimed   float64 `json:"claimed"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
	Exceeded  bool    `json:"exceeded"`
	Excess    float64 `json:"excess,omitempty"`
}

// ComputeLedger recomputes the full category ledger for one user's receipts
// in the given assessment year. It is a pure function over the passed-in
// collection: a full scan every time, not an incremental update, so edits
// and deletions can never leave a stale running total behind. Calling it
// twice with the same input yields the same output.
func ComputeLedger(year int, receipts []model.Receipt) map[model.Category]LedgerEntry {
	claimed := make(map[model.Category]float64)
	subClaimed := make(map[model.Category]map[string]float64)
	for _, r := range receipts {
		if !r.Claimable || r.Year() != year {
			continue
		}
		for _, item := range r.Items {
			if !item.Claim.Claimable || item.Claim.Tag == "" {
				continue
			}
			tag := item.Claim.Tag
			claimed[tag] += item.Amount()
			if name := subLimitName(tag, item.Name); name != "" {
				if subClaimed[tag] == nil {
					subClaimed[tag] = make(map[string]float64)
				}
				subClaimed[tag][name] += item.Amount()
			}
		}
	}

	ledger := make(map[model.Category]LedgerEntry, len(catalog))
	for _, info := range catalog {
		entry := LedgerEntry{
			Category:  info.Tag,
			Claimed:   claimed[info.Tag],
			Limit:     info.Limit,
			Unlimited: info.Unlimited,
		}
		if !info.Unlimited {
			if remaining := info.Limit - entry.Claimed; remaining > 0 {
				entry.Remaining = remaining
			}
			if entry.Claimed > info.Limit {
				entry.Exceeded = true
				entry.Excess = entry.Claimed - info.Limit
			}
		}
		for _, sub := range info.SubLimits {
			se := SubLimitEntry{
				Name:    sub.Name,
				Claimed: subClaimed[info.Tag][sub.Name],
				Limit:   sub.Limit,
			}
			if remaining := sub.Limit - se.Claimed; remaining > 0 {
				se.Remaining = remaining
			}
			if se.Claimed > sub.Limit {
				se.Exceeded = true
				se.Excess = se.Claimed - sub.Limit
			}
			entry.SubLimits = append(entry.SubLimits, se)
		}
		ledger[info.Tag] = entry
	}
	return ledger
}

// WouldExceedLifestyleCap is the lightweight pre-save check backed by the
// profile's running year-to-date value, so the add-receipt flow can warn the
// user before commit rather than after.
func WouldExceedLifestyleCap(ytd, cap, amount float64) bool {
	return ytd+amount > cap
}

// RemainingLifestyleCap returns the headroom left under the lifestyle cap,
// never negative.
func RemainingLifestyleCap(ytd, cap float64) float64 {
	if remaining := cap - ytd; remaining > 0 {
		return remaining
	}
	return 0
}
