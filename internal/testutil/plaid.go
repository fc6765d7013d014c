package testutil

import (
	"context"
	"sync"

	"budgetrelay/internal/infrastructure/plaid"
)

// MockPlaidClient implements plaid.ClientInterface with overridable funcs.
// Unset funcs return zero values.
type MockPlaidClient struct {
	CreateLinkTokenFunc           func(ctx context.Context, req plaid.LinkTokenRequest) (*plaid.LinkTokenResponse, error)
	ExchangePublicTokenFunc       func(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error)
	SyncTransactionsFunc          func(ctx context.Context, accessToken, cursor string, count int) (*plaid.SyncPage, error)
	GetBalancesFunc               func(ctx context.Context, accessToken string) (*plaid.BalanceResponse, error)
	RemoveItemFunc                func(ctx context.Context, accessToken string) error
	GetWebhookVerificationKeyFunc func(ctx context.Context, keyID string) (*plaid.JWK, error)

	mu        sync.Mutex
	SyncCalls int
}

var _ plaid.ClientInterface = (*MockPlaidClient)(nil)

func (m *MockPlaidClient) CreateLinkToken(ctx context.Context, req plaid.LinkTokenRequest) (*plaid.LinkTokenResponse, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, req)
	}
	return &plaid.LinkTokenResponse{}, nil
}

func (m *MockPlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return &plaid.ExchangeResponse{}, nil
}

func (m *MockPlaidClient) SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*plaid.SyncPage, error) {
	m.mu.Lock()
	m.SyncCalls++
	m.mu.Unlock()
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, accessToken, cursor, count)
	}
	return &plaid.SyncPage{}, nil
}

func (m *MockPlaidClient) GetBalances(ctx context.Context, accessToken string) (*plaid.BalanceResponse, error) {
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, accessToken)
	}
	return &plaid.BalanceResponse{}, nil
}

func (m *MockPlaidClient) RemoveItem(ctx context.Context, accessToken string) error {
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockPlaidClient) GetWebhookVerificationKey(ctx context.Context, keyID string) (*plaid.JWK, error) {
	if m.GetWebhookVerificationKeyFunc != nil {
		return m.GetWebhookVerificationKeyFunc(ctx, keyID)
	}
	return nil, nil
}

// FeedPages returns a SyncTransactionsFunc that serves pages keyed by the
// incoming cursor. An unknown cursor fails the test via the returned error.
func FeedPages(pages map[string]*plaid.SyncPage) func(ctx context.Context, accessToken, cursor string, count int) (*plaid.SyncPage, error) {
	return func(ctx context.Context, accessToken, cursor string, count int) (*plaid.SyncPage, error) {
		page, ok := pages[cursor]
		if !ok {
			return nil, &plaid.Error{StatusCode: 400, ErrorType: "INVALID_INPUT", ErrorCode: "INVALID_CURSOR", ErrorMessage: "unknown cursor " + cursor}
		}
		cp := *page
		return &cp, nil
	}
}
