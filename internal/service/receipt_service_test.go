package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/extraction"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/relief"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/store"
)

func newTestService(t *testing.T, ocrHandler http.HandlerFunc) (*ReceiptService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()

	baseURL := "http://127.0.0.1:1" // unroutable unless a handler is given
	if ocrHandler != nil {
		srv := httptest.NewServer(ocrHandler)
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	client := extraction.NewClient(baseURL, 2*time.Second)
	return NewReceiptService(st, client, zap.NewNop()), st
}

func TestScanReceiptNormalizesEntities(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		resp := extraction.ScanResponse{
			Success: true,
			Raw: &extraction.ScanRaw{
				Entities: []extraction.Entity{
					{Kind: extraction.KindSupplierName, Text: "Starbucks", Confidence: 0.95},
					{
						Kind:       extraction.KindTotalAmount,
						Confidence: 0.9,
						NormalizedValue: &extraction.NormalizedValue{
							MoneyValue: &extraction.MoneyValue{Units: "30", Nanos: 100000000, CurrencyCode: "MYR"},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	result := svc.ScanReceipt(context.Background(), []byte("img"), "image/jpeg")
	require.False(t, result.Fallback)
	assert.Equal(t, "Starbucks", result.Receipt.Merchant)
	assert.InDelta(t, 30.1, result.Receipt.TotalAmount, 1e-9)
	require.Len(t, result.Receipt.Items, 1)
	assert.Equal(t, extraction.SynthesizedItemName, result.Receipt.Items[0].Name)
}

func TestScanReceiptFallsBackWhenOCRDown(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result := svc.ScanReceipt(context.Background(), []byte("img"), "")
	assert.True(t, result.Fallback)
	assert.Empty(t, result.Receipt.Merchant)
	assert.NotEmpty(t, result.Receipt.Date)
	// Every confidence is marked low so review catches the synthetic draft.
	assert.Less(t, result.Receipt.Confidence.TotalAmount, 0.9)
}

func TestScanReceiptUsesFlattenedDataWithoutEntities(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		resp := extraction.ScanResponse{
			Success: true,
			Data: &extraction.ScanData{
				TotalAmount:  45.80,
				SupplierName: "Watsons",
				ReceiptDate:  "2025-03-07",
				Currency:     "MYR",
				LineItems: []extraction.ScanLineItem{
					{Description: "Panadol Actifast", Quantity: 2, UnitPrice: 22.90},
					{Description: "Bag", UnitPrice: 0}, // noise, dropped
				},
				ConfidenceScores: map[string]float64{"supplier_name": 0.92, "total_amount": 0.9},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})

	result := svc.ScanReceipt(context.Background(), []byte("img"), "")
	require.False(t, result.Fallback)
	assert.Equal(t, "Watsons", result.Receipt.Merchant)
	require.Len(t, result.Receipt.Items, 1)
	assert.Equal(t, 0.92, result.Receipt.Confidence.Merchant)
}

func draftWithItems(items ...model.LineItem) model.NormalizedReceipt {
	var total float64
	for _, item := range items {
		total += item.Amount()
	}
	return model.NormalizedReceipt{
		Merchant:    "Guardian Pharmacy",
		Date:        "2025-03-07",
		Currency:    "MYR",
		TotalAmount: total,
		Items:       items,
	}
}

func TestSaveReceiptCommitsDraft(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	result, err := svc.SaveReceipt(ctx, SaveReceiptInput{
		UserID:    "u1",
		Draft:     draftWithItems(model.LineItem{ID: "item-1", Name: "Flu vaccination", Quantity: 1, UnitPrice: 120}),
		Claimable: true,
	})
	require.NoError(t, err)

	receipt := result.Receipt
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "u1", receipt.UserID)
	assert.Equal(t, model.VerificationPending, receipt.VerificationStatus)
	assert.False(t, result.Reconciliation.Mismatch)

	// The heuristic proposed Medical for the vaccination, marked as
	// auto-assigned so the user can tell it apart from their own tagging.
	require.Len(t, receipt.Items, 1)
	assert.True(t, receipt.Items[0].Claim.Claimable)
	assert.Equal(t, model.CategoryMedical, receipt.Items[0].Claim.Tag)
	assert.True(t, receipt.Items[0].Claim.AutoAssigned)

	got, err := svc.GetReceipt(ctx, "u1", receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guardian Pharmacy", got.Merchant)
}

func TestSaveReceiptFlagsMismatchWithoutBlocking(t *testing.T) {
	svc, _ := newTestService(t, nil)

	draft := draftWithItems(model.LineItem{ID: "item-1", Name: "Notebook", Quantity: 1, UnitPrice: 10})
	draft.TotalAmount = 12.50 // disagrees with items by more than tolerance

	result, err := svc.SaveReceipt(context.Background(), SaveReceiptInput{UserID: "u1", Draft: draft})
	require.NoError(t, err, "a mismatch is a warning, not a save failure")
	assert.True(t, result.Reconciliation.Mismatch)
}

func TestSaveReceiptDoesNotAutoTagIneligibleItems(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.SaveReceipt(context.Background(), SaveReceiptInput{
		UserID: "u1",
		Draft:  draftWithItems(model.LineItem{ID: "item-1", Name: "Nasi lemak ayam", Quantity: 1, UnitPrice: 8.50}),
	})
	require.NoError(t, err)
	assert.False(t, result.Receipt.Items[0].Claim.Claimable)
	assert.Empty(t, result.Receipt.Items[0].Claim.Tag)

	// "Notebook" contains "book" but is stationery; it must stay untagged.
	result, err = svc.SaveReceipt(context.Background(), SaveReceiptInput{
		UserID: "u1",
		Draft:  draftWithItems(model.LineItem{ID: "item-1", Name: "Notebook A5 ruled", Quantity: 1, UnitPrice: 4.90}),
	})
	require.NoError(t, err)
	assert.False(t, result.Receipt.Items[0].Claim.Claimable)
	assert.Empty(t, result.Receipt.Items[0].Claim.Tag)
}

func TestSaveReceiptAccruesLifestyleYTD(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()

	item := model.LineItem{ID: "item-1", Name: "Unifi internet bill", Quantity: 1, UnitPrice: 129}
	_, err := svc.SaveReceipt(ctx, SaveReceiptInput{UserID: "u1", Draft: draftWithItems(item), Claimable: true})
	require.NoError(t, err)

	profile, err := st.GetProfile(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.InDelta(t, 129, profile.LifestyleYTD, 1e-9)

	check, err := svc.LifestyleHeadroom(ctx, "u1", 2025, 3000)
	require.NoError(t, err)
	assert.InDelta(t, 2500-129, check.Remaining, 1e-9)
	assert.True(t, check.WouldExceed)
}

func TestUpdateLineItemsPreservesVerificationStatus(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()

	saved, err := svc.SaveReceipt(ctx, SaveReceiptInput{
		UserID: "u1",
		Draft:  draftWithItems(model.LineItem{ID: "item-1", Name: "Notebook", Quantity: 1, UnitPrice: 10}),
	})
	require.NoError(t, err)

	// Downstream review verified the receipt out of band.
	saved.Receipt.VerificationStatus = model.VerificationVerified
	require.NoError(t, st.UpdateReceipt(ctx, saved.Receipt))

	result, err := svc.UpdateLineItems(ctx, "u1", saved.Receipt.ID, []model.LineItem{
		{ID: "item-1", Name: "Notebook", Quantity: 2, UnitPrice: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, result.Receipt.VerificationStatus)
	assert.True(t, result.Reconciliation.Mismatch, "declared total unchanged while items doubled")
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	saved, err := svc.SaveReceipt(ctx, SaveReceiptInput{
		UserID: "u1",
		Draft:  draftWithItems(model.LineItem{ID: "item-1", Name: "Notebook", Quantity: 1, UnitPrice: 10}),
	})
	require.NoError(t, err)

	_, err = svc.GetReceipt(ctx, "u2", saved.Receipt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateLineItems(ctx, "u2", saved.Receipt.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.DeleteReceipt(ctx, "u2", saved.Receipt.ID), ErrForbidden)
}

func TestClaimOverrideFlow(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	saved, err := svc.SaveReceipt(ctx, SaveReceiptInput{
		UserID:    "u1",
		Draft:     draftWithItems(model.LineItem{ID: "item-1", Name: "Vitamin C 1000mg", Quantity: 1, UnitPrice: 35.90}),
		Claimable: true,
	})
	require.NoError(t, err)
	receiptID := saved.Receipt.ID

	// Confirm without a prior request is a contract violation.
	_, err = svc.ConfirmClaim(ctx, "u1", receiptID, "item-1")
	assert.ErrorIs(t, err, relief.ErrInvalidTransition)

	reason, err := svc.RequestClaim(ctx, "u1", receiptID, "item-1", model.CategoryMedical)
	require.NoError(t, err)
	assert.NotEmpty(t, reason, "vitamins under Medical must surface a reason")

	// Still excluded until confirmed.
	got, err := svc.GetReceipt(ctx, "u1", receiptID)
	require.NoError(t, err)
	assert.False(t, got.Items[0].Claim.Claimable)

	receipt, err := svc.ConfirmClaim(ctx, "u1", receiptID, "item-1")
	require.NoError(t, err)
	assert.True(t, receipt.Items[0].Claim.Claimable)
	assert.Equal(t, model.CategoryMedical, receipt.Items[0].Claim.Tag)
	assert.False(t, receipt.Items[0].Claim.AutoAssigned)

	// The ledger observes the confirmed state.
	ledger, err := svc.Ledger(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.InDelta(t, 35.90, ledger[model.CategoryMedical].Claimed, 1e-9)

	// Removing the claim is immediate and clears the tag.
	receipt, err = svc.RemoveClaim(ctx, "u1", receiptID, "item-1")
	require.NoError(t, err)
	assert.False(t, receipt.Items[0].Claim.Claimable)
	assert.Empty(t, receipt.Items[0].Claim.Tag)

	ledger, err = svc.Ledger(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.Zero(t, ledger[model.CategoryMedical].Claimed)
}

func TestCancelClaimLeavesItemExcluded(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	saved, err := svc.SaveReceipt(ctx, SaveReceiptInput{
		UserID:    "u1",
		Draft:     draftWithItems(model.LineItem{ID: "item-1", Name: "Collagen drink", Quantity: 1, UnitPrice: 12}),
		Claimable: true,
	})
	require.NoError(t, err)

	_, err = svc.RequestClaim(ctx, "u1", saved.Receipt.ID, "item-1", model.CategoryMedical)
	require.NoError(t, err)
	require.NoError(t, svc.CancelClaim(ctx, "u1", saved.Receipt.ID, "item-1"))

	got, err := svc.GetReceipt(ctx, "u1", saved.Receipt.ID)
	require.NoError(t, err)
	assert.False(t, got.Items[0].Claim.Claimable)

	// Cancelling twice is invalid.
	assert.ErrorIs(t, svc.CancelClaim(ctx, "u1", saved.Receipt.ID, "item-1"), relief.ErrInvalidTransition)
}
