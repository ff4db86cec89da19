// Package store persists receipts and user profiles. MemoryStore backs local
// development and tests; FirestoreStore backs production.
package store

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// ErrNotFound is returned when a receipt or profile does not exist. Callers
// compare with errors.Is.
var ErrNotFound = errors.New("not found")

// Store defines the database operations used by the service.
type Store interface {
	// Receipt operations
	CreateReceipt(ctx context.Context, receipt *model.Receipt) error
	GetReceipt(ctx context.Context, receiptID string) (*model.Receipt, error)
	UpdateReceipt(ctx context.Context, receipt *model.Receipt) error
	DeleteReceipt(ctx context.Context, receiptID string) error
	// ListReceipts returns the user's receipts, optionally restricted to one
	// assessment year (year 0 means all years).
	ListReceipts(ctx context.Context, userID string, year int, pageSize int32, pageToken string) ([]*model.Receipt, string, error)

	// Profile operations
	GetProfile(ctx context.Context, userID string, year int) (*model.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *model.UserProfile) error
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
