package testutil

import (
	"context"
	"sync"
	"time"

	"budgetrelay/internal/domain/item"
)

// ItemStore is an in-memory item.Repository for tests.
type ItemStore struct {
	mu      sync.Mutex
	records map[string]item.AccessTokenRecord
	now     func() time.Time

	// Err, when set, is returned by every method.
	Err error
	// Saves records every SaveParams in arrival order.
	Saves []item.SaveParams
}

var _ item.Repository = (*ItemStore)(nil)

// NewItemStore returns an empty store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		records: make(map[string]item.AccessTokenRecord),
		now:     time.Now,
	}
}

// Put seeds a record directly, bypassing validation.
func (s *ItemStore) Put(rec item.AccessTokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Status == "" {
		rec.Status = item.StatusLinked
	}
	s.records[rec.UserID] = rec
}

// Len returns the number of stored records.
func (s *ItemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *ItemStore) Save(ctx context.Context, params item.SaveParams) error {
	if s.Err != nil {
		return s.Err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves = append(s.Saves, params)
	s.records[params.UserID] = item.AccessTokenRecord{
		UserID:      params.UserID,
		AccessToken: params.AccessToken,
		ItemID:      params.ItemID,
		CreatedAt:   s.now(),
		Status:      item.StatusLinked,
	}
	return nil
}

func (s *ItemStore) GetByUserID(ctx context.Context, userID string) (*item.AccessTokenRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, item.ErrNoAccessToken
	}
	return &rec, nil
}

func (s *ItemStore) FindByItemID(ctx context.Context, itemID string) (*item.AccessTokenRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ItemID == itemID {
			r := rec
			return &r, nil
		}
	}
	return nil, item.ErrItemNotFound
}

func (s *ItemStore) MarkSynced(ctx context.Context, userID string, at time.Time) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return item.ErrNoAccessToken
	}
	rec.Status = item.StatusSynced
	rec.LastSyncedAt = &at
	rec.SyncCount++
	s.records[userID] = rec
	return nil
}

func (s *ItemStore) SetStatus(ctx context.Context, userID string, status item.LinkStatus) error {
	if s.Err != nil {
		return s.Err
	}
	if !item.IsValidStatus(status) {
		return item.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return item.ErrNoAccessToken
	}
	rec.Status = status
	s.records[userID] = rec
	return nil
}

func (s *ItemStore) Delete(ctx context.Context, userID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
