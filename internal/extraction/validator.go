package extraction

import (
	"math"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// ReconcileTolerance absorbs floating-point and rounding noise when
// comparing the declared total against the computed one. A difference at or
// beyond it is flagged, not fatal: the declared total is sometimes more
// trustworthy than a partially-misread item list.
const ReconcileTolerance = 0.05

// ReconcileResult breaks down the computed total and whether it disagrees
// with the declared one.
type ReconcileResult struct {
	ItemsTotal    float64 `json:"itemsTotal"`
	Tax1          float64 `json:"tax1"`
	Tax2          float64 `json:"tax2"`
	ComputedTotal float64 `json:"computedTotal"`
	DeclaredTotal float64 `json:"declaredTotal"`
	Difference    float64 `json:"difference"`
	Mismatch      bool    `json:"mismatch"`
}

// Reconcile computes the expected receipt total from its parts and compares
// it to the declared total. taxRate2Percent is an independently toggled
// second charge (typically service charge); when disabled it contributes 0,
// keeping the formula total-stable. Pure and cheap: callers re-run it on
// every edit to items, rates or rounding.
func Reconcile(items []model.LineItem, taxRatePercent, taxRate2Percent, rounding, declaredTotal float64) ReconcileResult {
	var itemsTotal float64
	for _, item := range items {
		itemsTotal += item.Amount()
	}

	tax1 := itemsTotal * taxRatePercent / 100
	tax2 := itemsTotal * taxRate2Percent / 100
	computed := itemsTotal + tax1 + tax2 + rounding
	diff := declaredTotal - computed

	return ReconcileResult{
		ItemsTotal:    itemsTotal,
		Tax1:          tax1,
		Tax2:          tax2,
		ComputedTotal: computed,
		DeclaredTotal: declaredTotal,
		Difference:    diff,
		Mismatch:      math.Abs(diff) >= ReconcileTolerance,
	}
}
