package plaid

import (
	"fmt"
	"time"
)

// LinkTokenRequest describes a Link session to open for one end user.
type LinkTokenRequest struct {
	ClientUserID string
	ClientName   string
	Products     []string
	CountryCodes []string
	Language     string
	WebhookURL   string
}

type linkTokenCreateBody struct {
	ClientName   string        `json:"client_name"`
	Language     string        `json:"language"`
	CountryCodes []string      `json:"country_codes"`
	User         linkTokenUser `json:"user"`
	Products     []string      `json:"products"`
	Webhook      string        `json:"webhook,omitempty"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

// LinkTokenResponse is returned to the client unchanged.
type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// ExchangeResponse carries the durable credential for a linked item.
type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

func (r *ExchangeResponse) validate() error {
	if r.AccessToken == "" {
		return fmt.Errorf("%w: exchange response missing access_token", ErrMalformedResponse)
	}
	if r.ItemID == "" {
		return fmt.Errorf("%w: exchange response missing item_id", ErrMalformedResponse)
	}
	return nil
}

type syncBody struct {
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// SyncPage is one page of the transactions delta feed.
type SyncPage struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	RequestID  string               `json:"request_id"`
}

func (p *SyncPage) validate() error {
	for i := range p.Added {
		if p.Added[i].TransactionID == "" {
			return fmt.Errorf("%w: added[%d] missing transaction_id", ErrMalformedResponse, i)
		}
	}
	for i := range p.Modified {
		if p.Modified[i].TransactionID == "" {
			return fmt.Errorf("%w: modified[%d] missing transaction_id", ErrMalformedResponse, i)
		}
	}
	for i := range p.Removed {
		if p.Removed[i].TransactionID == "" {
			return fmt.Errorf("%w: removed[%d] missing transaction_id", ErrMalformedResponse, i)
		}
	}
	return nil
}

// Transaction is the subset of Plaid's transaction object the relay exposes.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  float64                  `json:"amount"`
	ISOCurrencyCode         *string                  `json:"iso_currency_code"`
	UnofficialCurrencyCode  *string                  `json:"unofficial_currency_code"`
	Date                    string                   `json:"date"`
	AuthorizedDate          *string                  `json:"authorized_date"`
	Name                    string                   `json:"name"`
	MerchantName            *string                  `json:"merchant_name"`
	Pending                 bool                     `json:"pending"`
	PendingTransactionID    *string                  `json:"pending_transaction_id"`
	PaymentChannel          string                   `json:"payment_channel"`
	LogoURL                 *string                  `json:"logo_url"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category,omitempty"`
}

// GetDate parses the posted date ("2006-01-02").
func (t *Transaction) GetDate() (*time.Time, error) {
	if t.Date == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", t.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date '%s': %w", t.Date, err)
	}
	return &parsed, nil
}

type PersonalFinanceCategory struct {
	Primary         string `json:"primary"`
	Detailed        string `json:"detailed"`
	ConfidenceLevel string `json:"confidence_level,omitempty"`
}

type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id,omitempty"`
}

type accessTokenBody struct {
	AccessToken string `json:"access_token"`
}

// BalanceResponse is the body of /accounts/balance/get.
type BalanceResponse struct {
	Accounts  []Account `json:"accounts"`
	RequestID string    `json:"request_id"`
}

// Account is a single account with its balances. Balance amounts are
// nullable: Plaid omits them for some account types.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName *string  `json:"official_name"`
	Mask         *string  `json:"mask"`
	Type         string   `json:"type"`
	Subtype      *string  `json:"subtype"`
	Balances     Balances `json:"balances"`
}

type Balances struct {
	Available              *float64 `json:"available"`
	Current                *float64 `json:"current"`
	Limit                  *float64 `json:"limit"`
	ISOCurrencyCode        *string  `json:"iso_currency_code"`
	UnofficialCurrencyCode *string  `json:"unofficial_currency_code"`
}

type verificationKeyBody struct {
	KeyID string `json:"key_id"`
}

type verificationKeyResponse struct {
	Key       JWK    `json:"key"`
	RequestID string `json:"request_id"`
}

// JWK is the EC public key Plaid signs webhooks with.
type JWK struct {
	Alg       string `json:"alg"`
	Crv       string `json:"crv"`
	Kid       string `json:"kid"`
	Kty       string `json:"kty"`
	Use       string `json:"use"`
	X         string `json:"x"`
	Y         string `json:"y"`
	CreatedAt int64  `json:"created_at"`
	ExpiredAt *int64 `json:"expired_at"`
}
