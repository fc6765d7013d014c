package notification

import (
	"errors"
	"time"
)

// Push message types carried in the data payload.
const (
	TypeTransactionsUpdated = "transactions_updated"
	TypeItemNeedsRelink     = "item_needs_relink"
)

var validPlatforms = map[string]struct{}{
	"ios":     {},
	"android": {},
	"web":     {},
}

// Domain errors
var (
	ErrInvalidToken    = errors.New("device token is required")
	ErrInvalidPlatform = errors.New("platform must be 'ios', 'android' or 'web'")
	ErrInvalidUser     = errors.New("user ID is required")
)

// DeviceToken is an FCM registration token owned by a user.
type DeviceToken struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegisterParams contains parameters for registering a device
type RegisterParams struct {
	UserID   string
	Token    string
	Platform string
}

func (p RegisterParams) Validate() error {
	if p.UserID == "" {
		return ErrInvalidUser
	}
	if p.Token == "" {
		return ErrInvalidToken
	}
	if !IsValidPlatform(p.Platform) {
		return ErrInvalidPlatform
	}
	return nil
}

func IsValidPlatform(p string) bool {
	_, ok := validPlatforms[p]
	return ok
}
