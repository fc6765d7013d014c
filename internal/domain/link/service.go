package link

import (
	"context"
	"errors"
	"fmt"
	"log"

	"budgetrelay/internal/domain/item"
	"budgetrelay/internal/infrastructure/plaid"
)

// Service issues link tokens, exchanges public tokens and reads balances.
type Service struct {
	plaid plaid.ClientInterface
	items item.Repository
	cfg   Config
}

// NewService creates a new link service
func NewService(client plaid.ClientInterface, items item.Repository, cfg Config) *Service {
	return &Service{plaid: client, items: items, cfg: cfg}
}

// CreateLinkToken starts a Link session. An empty userID falls back to the
// configured placeholder.
func (s *Service) CreateLinkToken(ctx context.Context, userID string) (*plaid.LinkTokenResponse, error) {
	if userID == "" {
		userID = s.cfg.DefaultUserID
	}

	resp, err := s.plaid.CreateLinkToken(ctx, plaid.LinkTokenRequest{
		ClientUserID: userID,
		ClientName:   s.cfg.ClientName,
		Products:     s.cfg.Products,
		CountryCodes: s.cfg.CountryCodes,
		Language:     s.cfg.Language,
		WebhookURL:   s.cfg.WebhookURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create link token: %w", err)
	}
	return resp, nil
}

// ExchangePublicToken trades the public token for an access token and stores
// it under userID, replacing any earlier record.
func (s *Service) ExchangePublicToken(ctx context.Context, publicToken, userID string) error {
	if publicToken == "" {
		return ErrPublicTokenRequired
	}
	if userID == "" {
		return ErrUserIDRequired
	}

	resp, err := s.plaid.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return fmt.Errorf("failed to exchange public token: %w", err)
	}

	err = s.items.Save(ctx, item.SaveParams{
		UserID:      userID,
		AccessToken: resp.AccessToken,
		ItemID:      resp.ItemID,
	})
	if err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}

	log.Printf("Linked item %s for user %s", resp.ItemID, userID)
	return nil
}

// GetBalances returns real-time balances for every account on the user's item.
func (s *Service) GetBalances(ctx context.Context, userID string) ([]AccountBalance, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	rec, err := s.items.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := s.plaid.GetBalances(ctx, rec.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	out := make([]AccountBalance, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		out = append(out, AccountBalance{
			AccountID: a.AccountID,
			Name:      a.Name,
			Balances: Balances{
				Available: a.Balances.Available,
				Current:   a.Balances.Current,
			},
		})
	}
	return out, nil
}

// GetLinkStatus reports NO_ITEM when the user has no stored record.
func (s *Service) GetLinkStatus(ctx context.Context, userID string) (*Status, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	rec, err := s.items.GetByUserID(ctx, userID)
	if errors.Is(err, item.ErrNoAccessToken) {
		return &Status{UserID: userID, Status: item.StatusNoItem}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &Status{
		UserID:       userID,
		Status:       rec.Status,
		ItemID:       rec.ItemID,
		LastSyncedAt: rec.LastSyncedAt,
		SyncCount:    rec.SyncCount,
	}
	if !rec.CreatedAt.IsZero() {
		created := rec.CreatedAt
		st.CreatedAt = &created
	}
	return st, nil
}

// UnlinkItem removes the item at Plaid and deletes the stored record.
// An access token Plaid no longer recognises is still deleted locally.
func (s *Service) UnlinkItem(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	rec, err := s.items.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.plaid.RemoveItem(ctx, rec.AccessToken); err != nil {
		if !plaid.IsErrorCode(err, plaid.ErrCodeInvalidAccessToken) {
			return fmt.Errorf("failed to remove item: %w", err)
		}
		log.Printf("Item %s already invalid at Plaid, deleting local record", rec.ItemID)
	}

	if err := s.items.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}

	log.Printf("Unlinked item %s for user %s", rec.ItemID, userID)
	return nil
}
