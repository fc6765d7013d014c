package firebase

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"budgetrelay/internal/domain/notification"
)

// DeviceRepository implements notification.Repository on a Firestore
// collection keyed by FCM token, so re-registering moves the token.
type DeviceRepository struct {
	client     *firestore.Client
	collection string
}

var _ notification.Repository = (*DeviceRepository)(nil)

// NewDeviceRepository creates a new Firestore-backed device token store
func NewDeviceRepository(client *firestore.Client, collection string) *DeviceRepository {
	return &DeviceRepository{client: client, collection: collection}
}

func (r *DeviceRepository) Upsert(ctx context.Context, params notification.RegisterParams) (*notification.DeviceToken, error) {
	_, err := r.client.Collection(r.collection).Doc(params.Token).Set(ctx, map[string]interface{}{
		"userId":    params.UserID,
		"platform":  params.Platform,
		"updatedAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token: %w", err)
	}

	return &notification.DeviceToken{
		UserID:    params.UserID,
		Token:     params.Token,
		Platform:  params.Platform,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (r *DeviceRepository) ListTokensByUserID(ctx context.Context, userID string) ([]string, error) {
	snaps, err := r.client.Collection(r.collection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens for user %s: %w", userID, err)
	}

	tokens := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		tokens = append(tokens, snap.Ref.ID)
	}
	return tokens, nil
}

func (r *DeviceRepository) DeleteToken(ctx context.Context, token string) error {
	if _, err := r.client.Collection(r.collection).Doc(token).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}
