package plaid

import (
	"context"
)

// ClientInterface defines the methods required from the Plaid API client
type ClientInterface interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*SyncPage, error)
	GetBalances(ctx context.Context, accessToken string) (*BalanceResponse, error)
	RemoveItem(ctx context.Context, accessToken string) error
	GetWebhookVerificationKey(ctx context.Context, keyID string) (*JWK, error)
}
