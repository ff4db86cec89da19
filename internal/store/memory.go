package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
)

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu sync.RWMutex

	receipts map[string]*model.Receipt
	profiles map[string]*model.UserProfile
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[string]*model.Receipt),
		profiles: make(map[string]*model.UserProfile),
	}
}

// paginateIDs applies cursor-based pagination to a slice of IDs.
// Returns the paginated IDs and the next page token (empty if no more pages).
func paginateIDs(ids []string, pageSize int32, pageToken string) ([]string, string) {
	if pageSize <= 0 {
		pageSize = 100
	}

	sort.Strings(ids)

	startIdx := 0
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err == nil {
			startIdx = len(ids)
			for i, id := range ids {
				if id > cursorID {
					startIdx = i
					break
				}
			}
		}
	}
	ids = ids[startIdx:]

	var nextToken string
	if int32(len(ids)) > pageSize {
		nextToken = EncodePageToken(ids[pageSize-1])
		ids = ids[:pageSize]
	}
	return ids, nextToken
}

func profileKey(userID string, year int) string {
	return fmt.Sprintf("%s:%d", userID, year)
}

// Receipt operations

func (m *MemoryStore) CreateReceipt(ctx context.Context, receipt *model.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	m.receipts[receipt.ID] = receipt
	return nil
}

func (m *MemoryStore) GetReceipt(ctx context.Context, receiptID string) (*model.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	receipt, ok := m.receipts[receiptID]
	if !ok {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, ErrNotFound)
	}
	return receipt, nil
}

func (m *MemoryStore) UpdateReceipt(ctx context.Context, receipt *model.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[receipt.ID]; !ok {
		return fmt.Errorf("receipt %s: %w", receipt.ID, ErrNotFound)
	}
	m.receipts[receipt.ID] = receipt
	return nil
}

func (m *MemoryStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.receipts, receiptID)
	return nil
}

func (m *MemoryStore) ListReceipts(ctx context.Context, userID string, year int, pageSize int32, pageToken string) ([]*model.Receipt, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingIDs []string
	for id, receipt := range m.receipts {
		if userID != "" && receipt.UserID != userID {
			continue
		}
		if year != 0 && receipt.Year() != year {
			continue
		}
		matchingIDs = append(matchingIDs, id)
	}

	paginatedIDs, nextToken := paginateIDs(matchingIDs, pageSize, pageToken)
	result := make([]*model.Receipt, 0, len(paginatedIDs))
	for _, id := range paginatedIDs {
		result = append(result, m.receipts[id])
	}
	return result, nextToken, nil
}

// Profile operations

func (m *MemoryStore) GetProfile(ctx context.Context, userID string, year int) (*model.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[profileKey(userID, year)]
	if !ok {
		return nil, fmt.Errorf("profile %s/%d: %w", userID, year, ErrNotFound)
	}
	return profile, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, profile *model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profileKey(profile.ID, profile.Year)] = profile
	return nil
}
