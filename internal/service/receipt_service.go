// Package service orchestrates extraction, reconciliation, relief
// classification and persistence behind the HTTP surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/extraction"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/relief"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/store"
)

// ErrForbidden is returned when a caller addresses a receipt owned by a
// different user.
var ErrForbidden = errors.New("receipt belongs to a different user")

// ReceiptService wires the extraction client, the relief logic and the store
// together. The pipeline stages themselves stay pure; this layer owns IO and
// logging.
type ReceiptService struct {
	store  store.Store
	ocr    *extraction.Client
	logger *zap.Logger

	// Pending claim confirmations, keyed by receiptID/itemID. Single-writer
	// per user session; the mutex only guards concurrent HTTP handlers.
	mu      sync.Mutex
	pending map[string]*relief.Override
}

// NewReceiptService creates the orchestration service.
func NewReceiptService(st store.Store, ocr *extraction.Client, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		store:   st,
		ocr:     ocr,
		logger:  logger,
		pending: make(map[string]*relief.Override),
	}
}

// ScanResult is the outcome of one scan: the normalized draft plus whether
// the OCR call failed and the low-confidence fallback was substituted.
type ScanResult struct {
	Receipt  model.NormalizedReceipt `json:"receipt"`
	Fallback bool                    `json:"fallback,omitempty"`
}

// ScanReceipt sends the image to the extraction service once and normalizes
// the response. It never fails mid-flow: on any OCR error the fallback draft
// is returned so the user can fill it in manually, with the failure logged
// and every confidence marked low for downstream review.
func (s *ReceiptService) ScanReceipt(ctx context.Context, image []byte, mimeType string) ScanResult {
	resp, err := s.ocr.Scan(ctx, image, mimeType)
	if err != nil {
		s.logger.Warn("extraction failed, substituting fallback draft", zap.Error(err))
		return ScanResult{Receipt: extraction.FallbackResult(), Fallback: true}
	}

	if resp.Raw != nil && len(resp.Raw.Entities) > 0 {
		return ScanResult{Receipt: extraction.Normalize(resp.Raw.Entities)}
	}
	if resp.Data != nil {
		return ScanResult{Receipt: normalizedFromScanData(resp.Data)}
	}

	s.logger.Warn("extraction response carried no entities or data")
	return ScanResult{Receipt: extraction.FallbackResult(), Fallback: true}
}

// normalizedFromScanData builds a draft from the service's flattened field
// view, used when the raw entity list is absent from the response.
func normalizedFromScanData(data *extraction.ScanData) model.NormalizedReceipt {
	r := model.NormalizedReceipt{
		Merchant:    data.SupplierName,
		Date:        data.ReceiptDate,
		Currency:    data.Currency,
		TotalAmount: data.TotalAmount,
	}
	if r.Date == "" {
		r.Date = time.Now().Format("2006-01-02")
	}
	for i, li := range data.LineItems {
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		unit := li.UnitPrice
		if unit == 0 && li.Amount > 0 {
			unit = li.Amount / float64(qty)
		}
		if li.Description == "" || unit <= 0 {
			continue
		}
		r.Items = append(r.Items, model.LineItem{
			ID:        fmt.Sprintf("item-%d", i+1),
			Name:      li.Description,
			Quantity:  qty,
			UnitPrice: unit,
		})
	}
	r.Confidence = model.FieldConfidence{
		Merchant:    data.ConfidenceScores["supplier_name"],
		Date:        data.ConfidenceScores["receipt_date"],
		TotalAmount: data.ConfidenceScores["total_amount"],
		LineItems:   data.ConfidenceScores["line_items"],
		Tax:         data.ConfidenceScores["tax"],
	}
	return r
}

// SaveReceiptInput carries the committed draft plus the receipt-level
// metadata the user set during review.
type SaveReceiptInput struct {
	UserID        string                  `json:"-"`
	Draft         model.NormalizedReceipt `json:"draft"`
	PaymentMethod string                  `json:"paymentMethod,omitempty"`
	Notes         string                  `json:"notes,omitempty"`
	Tags          []model.Category        `json:"tags,omitempty"`
	Claimable     bool                    `json:"claimable"`
}

// SaveResult is a committed receipt together with its reconciliation state.
// A mismatch is a warning carried alongside the saved record, never a block.
type SaveResult struct {
	Receipt        *model.Receipt             `json:"receipt"`
	Reconciliation extraction.ReconcileResult `json:"reconciliation"`
}

// SaveReceipt commits a reviewed draft as a receipt. Reconciliation runs on
// the exact item set being persisted; a mismatch is logged and returned as a
// warning. Untagged items get a heuristic relief proposal when one applies,
// marked autoAssigned so the user can tell it apart from their own tagging.
func (s *ReceiptService) SaveReceipt(ctx context.Context, in SaveReceiptInput) (*SaveResult, error) {
	draft := in.Draft
	// The extracted service charge is an absolute amount, not a rate, so it
	// joins rounding in the additive term.
	rec := extraction.Reconcile(draft.Items, draft.TaxRatePercent, 0, draft.Rounding+draft.ServiceCharge, draft.TotalAmount)
	if rec.Mismatch {
		s.logger.Warn("declared total disagrees with computed total",
			zap.Float64("declared", rec.DeclaredTotal),
			zap.Float64("computed", rec.ComputedTotal),
			zap.Float64("difference", rec.Difference))
	}

	for i := range draft.Items {
		item := &draft.Items[i]
		if item.Claim.Claimable || item.Claim.Tag != "" {
			continue
		}
		proposal, ok := relief.Classify(item.Name, "")
		if !ok || relief.IsTypicallyIneligible(item.Name, proposal.Tag) != "" {
			continue
		}
		item.Claim.Claim(proposal.Tag, proposal.AutoAssigned)
	}

	receipt := &model.Receipt{
		ID:                 uuid.New().String(),
		UserID:             in.UserID,
		Merchant:           draft.Merchant,
		MerchantAddress:    draft.MerchantAddress,
		Date:               draft.Date,
		Currency:           draft.Currency,
		TotalAmount:        draft.TotalAmount,
		Subtotal:           draft.Subtotal,
		TaxAmount:          draft.TaxAmount,
		TaxRatePercent:     draft.TaxRatePercent,
		ServiceCharge:      draft.ServiceCharge,
		Rounding:           draft.Rounding,
		Items:              draft.Items,
		PaymentMethod:      in.PaymentMethod,
		Notes:              in.Notes,
		Tags:               in.Tags,
		Claimable:          in.Claimable,
		VerificationStatus: model.VerificationPending,
		Confidence:         draft.Confidence,
		UploadedAt:         time.Now().UTC(),
	}

	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	if err := s.accrueLifestyleYTD(ctx, receipt); err != nil {
		// The running value is a pre-check convenience; the ledger remains
		// authoritative, so a failed accrual must not fail the save.
		s.logger.Warn("failed to update lifestyle year-to-date", zap.Error(err))
	}

	return &SaveResult{Receipt: receipt, Reconciliation: rec}, nil
}

// accrueLifestyleYTD adds the receipt's claimed lifestyle amounts to the
// profile's running year-to-date value.
func (s *ReceiptService) accrueLifestyleYTD(ctx context.Context, receipt *model.Receipt) error {
	if !receipt.Claimable {
		return nil
	}
	var amount float64
	for _, item := range receipt.Items {
		if item.Claim.Claimable && item.Claim.Tag == model.CategoryLifestyle {
			amount += item.Amount()
		}
	}
	if amount == 0 {
		return nil
	}

	year := receipt.Year()
	profile, err := s.store.GetProfile(ctx, receipt.UserID, year)
	if errors.Is(err, store.ErrNotFound) {
		profile = &model.UserProfile{ID: receipt.UserID, Year: year}
	} else if err != nil {
		return err
	}
	profile.LifestyleYTD += amount
	return s.store.UpsertProfile(ctx, profile)
}

// GetReceipt loads one receipt, enforcing ownership.
func (s *ReceiptService) GetReceipt(ctx context.Context, userID, receiptID string) (*model.Receipt, error) {
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.UserID != userID {
		return nil, ErrForbidden
	}
	return receipt, nil
}

// ListReceipts pages through the user's receipts for one year (0 = all).
func (s *ReceiptService) ListReceipts(ctx context.Context, userID string, year int, pageSize int32, pageToken string) ([]*model.Receipt, string, error) {
	return s.store.ListReceipts(ctx, userID, year, pageSize, pageToken)
}

// DeleteReceipt removes a receipt after an ownership check.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, userID, receiptID string) error {
	if _, err := s.GetReceipt(ctx, userID, receiptID); err != nil {
		return err
	}
	return s.store.DeleteReceipt(ctx, receiptID)
}

// UpdateLineItems replaces a receipt's item set after a user edit and re-runs
// reconciliation on the exact set being persisted. The verification status
// set by downstream review is preserved untouched.
func (s *ReceiptService) UpdateLineItems(ctx context.Context, userID, receiptID string, items []model.LineItem) (*SaveResult, error) {
	receipt, err := s.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}

	receipt.Items = items
	rec := extraction.Reconcile(items, receipt.TaxRatePercent, 0, receipt.Rounding+receipt.ServiceCharge, receipt.TotalAmount)
	if rec.Mismatch {
		s.logger.Warn("edited items no longer reconcile with declared total",
			zap.String("receiptId", receiptID),
			zap.Float64("difference", rec.Difference))
	}

	if err := s.store.UpdateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	return &SaveResult{Receipt: receipt, Reconciliation: rec}, nil
}

func pendingKey(receiptID, itemID string) string {
	return receiptID + "/" + itemID
}

func findItem(receipt *model.Receipt, itemID string) (*model.LineItem, error) {
	for i := range receipt.Items {
		if receipt.Items[i].ID == itemID {
			return &receipt.Items[i], nil
		}
	}
	return nil, fmt.Errorf("line item %s: %w", itemID, store.ErrNotFound)
}

// RequestClaim starts the override confirmation flow for an excluded item.
// It returns the typically-ineligible reason, "" when none applies; either
// way the item stays excluded until ConfirmClaim.
func (s *ReceiptService) RequestClaim(ctx context.Context, userID, receiptID, itemID string, tag model.Category) (string, error) {
	receipt, err := s.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		return "", err
	}
	item, err := findItem(receipt, itemID)
	if err != nil {
		return "", err
	}

	o := relief.NewOverride(*item)
	if err := o.RequestClaim(item.Name, tag); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.pending[pendingKey(receiptID, itemID)] = o
	s.mu.Unlock()
	return o.Reason(), nil
}

// ConfirmClaim completes a pending claim and persists the item.
func (s *ReceiptService) ConfirmClaim(ctx context.Context, userID, receiptID, itemID string) (*model.Receipt, error) {
	s.mu.Lock()
	o, ok := s.pending[pendingKey(receiptID, itemID)]
	s.mu.Unlock()
	if !ok {
		return nil, relief.ErrInvalidTransition
	}

	receipt, err := s.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(receipt, itemID)
	if err != nil {
		return nil, err
	}

	if err := o.Confirm(item); err != nil {
		return nil, err
	}
	if err := s.store.UpdateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}

	s.mu.Lock()
	delete(s.pending, pendingKey(receiptID, itemID))
	s.mu.Unlock()
	return receipt, nil
}

// CancelClaim abandons a pending claim. The item is untouched.
func (s *ReceiptService) CancelClaim(ctx context.Context, userID, receiptID, itemID string) error {
	if _, err := s.GetReceipt(ctx, userID, receiptID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := pendingKey(receiptID, itemID)
	o, ok := s.pending[key]
	if !ok {
		return relief.ErrInvalidTransition
	}
	if err := o.Cancel(); err != nil {
		return err
	}
	delete(s.pending, key)
	return nil
}

// RemoveClaim retreats a claimable item to excluded immediately; no
// confirmation step in this direction.
func (s *ReceiptService) RemoveClaim(ctx context.Context, userID, receiptID, itemID string) (*model.Receipt, error) {
	receipt, err := s.GetReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(receipt, itemID)
	if err != nil {
		return nil, err
	}

	o := relief.NewOverride(*item)
	if err := o.RemoveClaim(item); err != nil {
		return nil, err
	}
	if err := s.store.UpdateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	return receipt, nil
}

// listAllReceipts drains every page for the user and year.
func (s *ReceiptService) listAllReceipts(ctx context.Context, userID string, year int) ([]model.Receipt, error) {
	var all []model.Receipt
	pageToken := ""
	for {
		page, next, err := s.store.ListReceipts(ctx, userID, year, 500, pageToken)
		if err != nil {
			return nil, fmt.Errorf("list receipts: %w", err)
		}
		for _, r := range page {
			all = append(all, *r)
		}
		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}

// Ledger recomputes the full category cap ledger for one assessment year.
func (s *ReceiptService) Ledger(ctx context.Context, userID string, year int) (map[model.Category]relief.LedgerEntry, error) {
	receipts, err := s.listAllReceipts(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	return relief.ComputeLedger(year, receipts), nil
}

// LifestylePreCheck is the lightweight pre-save view of the lifestyle cap.
type LifestylePreCheck struct {
	YTD         float64 `json:"ytd"`
	Cap         float64 `json:"cap"`
	Remaining   float64 `json:"remaining"`
	WouldExceed bool    `json:"wouldExceed"`
}

// LifestyleHeadroom answers "would this new expense exceed the lifestyle
// cap" from the profile's running year-to-date value, before any receipt is
// saved.
func (s *ReceiptService) LifestyleHeadroom(ctx context.Context, userID string, year int, amount float64) (LifestylePreCheck, error) {
	info, _ := relief.CatalogEntry(model.CategoryLifestyle)

	var ytd float64
	profile, err := s.store.GetProfile(ctx, userID, year)
	if err == nil {
		ytd = profile.LifestyleYTD
	} else if !errors.Is(err, store.ErrNotFound) {
		return LifestylePreCheck{}, err
	}

	return LifestylePreCheck{
		YTD:         ytd,
		Cap:         info.Limit,
		Remaining:   relief.RemainingLifestyleCap(ytd, info.Limit),
		WouldExceed: relief.WouldExceedLifestyleCap(ytd, info.Limit, amount),
	}, nil
}

// ReliefReport assembles the per-year relief report from the ledger plus
// receipt metadata.
func (s *ReceiptService) ReliefReport(ctx context.Context, userID string, year int) (*ReliefReport, error) {
	receipts, err := s.listAllReceipts(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	ledger := relief.ComputeLedger(year, receipts)
	return BuildReliefReport(year, receipts, ledger), nil
}
