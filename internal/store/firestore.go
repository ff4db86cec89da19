package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

const (
	receiptsCollection = "receipts"
	profilesCollection = "profiles"
)

// FirestoreStore implements the Store interface using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// applyCursorPagination adds OrderBy + StartAfter + Limit to a query for
// cursor-based pagination. It fetches pageSize+1 docs so the caller can
// detect whether a next page exists.
func (s *FirestoreStore) applyCursorPagination(query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.StartAfter(docID)
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	query = query.Limit(int(pageSize) + 1) // +1 to detect next page
	return query, nil
}

// applyDateAwarePagination handles pagination for queries with date range
// filters. Firestore requires OrderBy on inequality fields first, so we use
// OrderBy("date") + OrderBy(__name__). The cursor must include both the date
// value and the document ID.
func (s *FirestoreStore) applyDateAwarePagination(ctx context.Context, query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy("date", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		// Fetch the cursor document to get its date value for composite StartAfter
		cursorDoc, err := s.client.Collection(receiptsCollection).Doc(docID).Get(ctx)
		if err != nil {
			return query, fmt.Errorf("failed to fetch cursor document: %w", err)
		}
		dateVal := cursorDoc.Data()["date"]
		query = query.StartAfter(dateVal, docID)
	}

	if pageSize <= 0 {
		pageSize = 100
	}
	query = query.Limit(int(pageSize) + 1)
	return query, nil
}

func (s *FirestoreStore) CreateReceipt(ctx context.Context, receipt *model.Receipt) error {
	_, err := s.client.Collection(receiptsCollection).Doc(receipt.ID).Set(ctx, receipt)
	return err
}

func (s *FirestoreStore) GetReceipt(ctx context.Context, receiptID string) (*model.Receipt, error) {
	doc, err := s.client.Collection(receiptsCollection).Doc(receiptID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("receipt %s: %w", receiptID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	var receipt model.Receipt
	if err := doc.DataTo(&receipt); err != nil {
		return nil, fmt.Errorf("failed to parse receipt: %w", err)
	}
	return &receipt, nil
}

func (s *FirestoreStore) UpdateReceipt(ctx context.Context, receipt *model.Receipt) error {
	_, err := s.client.Collection(receiptsCollection).Doc(receipt.ID).Set(ctx, receipt)
	return err
}

func (s *FirestoreStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	_, err := s.client.Collection(receiptsCollection).Doc(receiptID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListReceipts(ctx context.Context, userID string, year int, pageSize int32, pageToken string) ([]*model.Receipt, string, error) {
	query := s.client.Collection(receiptsCollection).Query

	if userID != "" {
		query = query.Where("userId", "==", userID)
	}

	var err error
	if year != 0 {
		// Dates are ISO strings at the storage boundary, so a year filter is
		// a lexicographic range on the date field. Range filters need the
		// date-aware ordering below.
		query = query.
			Where("date", ">=", fmt.Sprintf("%04d-01-01", year)).
			Where("date", "<=", fmt.Sprintf("%04d-12-31", year))
		query, err = s.applyDateAwarePagination(ctx, query, pageSize, pageToken)
	} else {
		query, err = s.applyCursorPagination(query, pageSize, pageToken)
	}
	if err != nil {
		return nil, "", err
	}

	if pageSize <= 0 {
		pageSize = 100
	}

	var receipts []*model.Receipt
	it := query.Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to list receipts: %w", err)
		}
		var receipt model.Receipt
		if err := doc.DataTo(&receipt); err != nil {
			return nil, "", fmt.Errorf("failed to parse receipt: %w", err)
		}
		receipts = append(receipts, &receipt)
	}

	var nextPageToken string
	if len(receipts) > int(pageSize) {
		receipts = receipts[:pageSize]
		nextPageToken = EncodePageToken(receipts[pageSize-1].ID)
	}
	return receipts, nextPageToken, nil
}

func (s *FirestoreStore) GetProfile(ctx context.Context, userID string, year int) (*model.UserProfile, error) {
	docID := fmt.Sprintf("%s_%d", userID, year)
	doc, err := s.client.Collection(profilesCollection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile %s/%d: %w", userID, year, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var profile model.UserProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &profile, nil
}

func (s *FirestoreStore) UpsertProfile(ctx context.Context, profile *model.UserProfile) error {
	docID := fmt.Sprintf("%s_%d", profile.ID, profile.Year)
	_, err := s.client.Collection(profilesCollection).Doc(docID).Set(ctx, profile)
	return err
}
