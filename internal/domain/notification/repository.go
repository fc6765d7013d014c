package notification

import "context"

// Repository stores device tokens.
// Defined in the domain layer, implemented in the infrastructure layer.
type Repository interface {
	// Upsert stores the token, reassigning it if another user held it.
	Upsert(ctx context.Context, params RegisterParams) (*DeviceToken, error)
	ListTokensByUserID(ctx context.Context, userID string) ([]string, error)
	DeleteToken(ctx context.Context, token string) error
}
