package extraction

import (
	"time"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// fallbackConfidence marks every field of a synthetic result produced when
// the extraction service was unreachable, so downstream review always
// catches it.
const fallbackConfidence = 0.1

// FallbackResult is the clearly low-confidence substitute returned to the
// user when the extraction call fails or times out. It is a pure function so
// the failure path can be tested without network access: the user fills the
// draft in manually instead of being shown a hard error mid-flow.
func FallbackResult() model.NormalizedReceipt {
	return model.NormalizedReceipt{
		Merchant: "",
		Date:     time.Now().Format("2006-01-02"),
		Items:    nil,
		Confidence: model.FieldConfidence{
			Merchant:    fallbackConfidence,
			Date:        fallbackConfidence,
			TotalAmount: fallbackConfidence,
			LineItems:   fallbackConfidence,
			Tax:         fallbackConfidence,
		},
	}
}
