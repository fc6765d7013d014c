package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	apiVersion     = "2020-09-14"
	defaultTimeout = 30 * time.Second

	linkTokenCreatePath       = "/link/token/create"
	publicTokenExchangePath   = "/item/public_token/exchange"
	transactionsSyncPath      = "/transactions/sync"
	balanceGetPath            = "/accounts/balance/get"
	itemRemovePath            = "/item/remove"
	webhookVerificationKeyPth = "/webhook_verification_key/get"
)

var environments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

var plaidTracer = otel.Tracer("budgetrelay/plaid")

// Client handles communication with the Plaid API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a Plaid client for the named environment
// (sandbox, development or production).
func NewClient(clientID, secret, environment string) (*Client, error) {
	baseURL, ok := environments[environment]
	if !ok {
		return nil, fmt.Errorf("unknown plaid environment %q", environment)
	}
	return NewClientWithBaseURL(clientID, secret, baseURL), nil
}

// NewClientWithBaseURL creates a client against an explicit base URL.
// Used by tests and for pointing at a local mock.
func NewClientWithBaseURL(clientID, secret, baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
	}
}

// CreateLinkToken requests a short-lived Link token.
func (c *Client) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error) {
	body := linkTokenCreateBody{
		ClientName:   req.ClientName,
		Language:     req.Language,
		CountryCodes: req.CountryCodes,
		User:         linkTokenUser{ClientUserID: req.ClientUserID},
		Products:     req.Products,
		Webhook:      req.WebhookURL,
	}

	var resp LinkTokenResponse
	if err := c.post(ctx, linkTokenCreatePath, body, &resp); err != nil {
		return nil, err
	}
	if resp.LinkToken == "" {
		return nil, fmt.Errorf("%w: %w: link token response missing link_token", ErrGateway, ErrMalformedResponse)
	}
	return &resp, nil
}

// ExchangePublicToken trades a one-time public token for an access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error) {
	var resp ExchangeResponse
	if err := c.post(ctx, publicTokenExchangePath, map[string]string{"public_token": publicToken}, &resp); err != nil {
		return nil, err
	}
	if err := resp.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return &resp, nil
}

// SyncTransactions fetches one page of the delta feed. An empty cursor
// starts from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string, count int) (*SyncPage, error) {
	body := syncBody{
		AccessToken: accessToken,
		Cursor:      cursor,
		Count:       count,
	}

	var page SyncPage
	if err := c.post(ctx, transactionsSyncPath, body, &page); err != nil {
		return nil, err
	}
	if err := page.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return &page, nil
}

// GetBalances fetches real-time balances for every account on the item.
func (c *Client) GetBalances(ctx context.Context, accessToken string) (*BalanceResponse, error) {
	var resp BalanceResponse
	if err := c.post(ctx, balanceGetPath, accessTokenBody{AccessToken: accessToken}, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Accounts {
		if resp.Accounts[i].AccountID == "" {
			return nil, fmt.Errorf("%w: %w: accounts[%d] missing account_id", ErrGateway, ErrMalformedResponse, i)
		}
	}
	return &resp, nil
}

// RemoveItem invalidates the access token and removes the item at Plaid.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	var resp struct {
		RequestID string `json:"request_id"`
	}
	return c.post(ctx, itemRemovePath, accessTokenBody{AccessToken: accessToken}, &resp)
}

// GetWebhookVerificationKey fetches the public key identified by a webhook JWT's kid.
func (c *Client) GetWebhookVerificationKey(ctx context.Context, keyID string) (*JWK, error) {
	var resp verificationKeyResponse
	if err := c.post(ctx, webhookVerificationKeyPth, verificationKeyBody{KeyID: keyID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Key, nil
}

// post sends an authenticated JSON request and decodes a 200 body into out.
// Non-200 bodies are decoded as a Plaid *Error.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	ctx, span := plaidTracer.Start(ctx, "plaid "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("plaid.endpoint", path)),
	)
	defer span.End()

	err := c.do(ctx, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.clientID)
	req.Header.Set("PLAID-SECRET", c.secret)
	req.Header.Set("Plaid-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %w", ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrGateway, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.ErrorCode == "" {
			return &Error{
				StatusCode:   resp.StatusCode,
				ErrorType:    "API_ERROR",
				ErrorCode:    "UNEXPECTED_RESPONSE",
				ErrorMessage: truncate(string(respBody), 512),
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w: failed to unmarshal response: %w", ErrGateway, ErrMalformedResponse, err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
