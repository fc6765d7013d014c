package link

import (
	"fmt"
	"time"

	"budgetrelay/internal/domain/item"
)

// Domain errors
var (
	ErrPublicTokenRequired = fmt.Errorf("%w: public_token is required", item.ErrInvalidInput)
	ErrUserIDRequired      = fmt.Errorf("%w: userId is required", item.ErrInvalidInput)
)

// Config holds the Link session parameters sent with every link token request.
type Config struct {
	ClientName    string
	Products      []string
	CountryCodes  []string
	Language      string
	WebhookURL    string
	DefaultUserID string
}

// AccountBalance is the per-account shape returned by /balance.
type AccountBalance struct {
	AccountID string   `json:"account_id"`
	Name      string   `json:"name"`
	Balances  Balances `json:"balances"`
}

// Balances are null when the institution does not report them.
type Balances struct {
	Available *float64 `json:"available"`
	Current   *float64 `json:"current"`
}

// Status is the client-facing view of a user's link state.
type Status struct {
	UserID       string          `json:"userId"`
	Status       item.LinkStatus `json:"status"`
	ItemID       string          `json:"itemId,omitempty"`
	CreatedAt    *time.Time      `json:"createdAt,omitempty"`
	LastSyncedAt *time.Time      `json:"lastSyncedAt,omitempty"`
	SyncCount    int64           `json:"syncCount"`
}
