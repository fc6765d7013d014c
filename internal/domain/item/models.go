package item

import (
	"errors"
	"fmt"
	"time"
)

// LinkStatus is the explicit per-user link state. It is derived from the
// presence of a record and updated as syncs and webhooks come in.
type LinkStatus string

const (
	StatusNoItem      LinkStatus = "NO_ITEM"
	StatusLinked      LinkStatus = "LINKED"
	StatusSynced      LinkStatus = "SYNCED"
	StatusNeedsRelink LinkStatus = "NEEDS_RELINK"
)

var validStatuses = map[LinkStatus]struct{}{
	StatusLinked:      {},
	StatusSynced:      {},
	StatusNeedsRelink: {},
}

// Domain errors
var (
	ErrNoAccessToken = errors.New("no access token found for user")
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidStatus = errors.New("invalid link status")
	// ErrVault wraps every persistence failure so callers can tell it
	// apart from upstream gateway failures.
	ErrVault = errors.New("token vault error")
)

// AccessTokenRecord is the durable credential for one user's linked item.
// One record per user; a new exchange replaces it wholesale.
type AccessTokenRecord struct {
	UserID       string     `json:"userId"`
	AccessToken  string     `json:"-"`
	ItemID       string     `json:"itemId"`
	CreatedAt    time.Time  `json:"createdAt"`
	Status       LinkStatus `json:"status"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	SyncCount    int64      `json:"syncCount"`
}

// SaveParams contains parameters for storing an exchanged access token
type SaveParams struct {
	UserID      string
	AccessToken string
	ItemID      string
}

// Validate validates the save parameters
func (p SaveParams) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidInput)
	}
	if p.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrInvalidInput)
	}
	if p.ItemID == "" {
		return fmt.Errorf("%w: item ID is required", ErrInvalidInput)
	}
	return nil
}

// IsValidStatus checks a status that may be persisted on a record.
func IsValidStatus(s LinkStatus) bool {
	_, ok := validStatuses[s]
	return ok
}
