package item

import (
	"context"
	"time"
)

// Repository defines the interface for the token vault.
// Implementations wrap storage failures with ErrVault.
type Repository interface {
	// Save writes the record keyed by params.UserID, replacing any prior
	// record. CreatedAt is assigned by the store and Status reset to LINKED.
	Save(ctx context.Context, params SaveParams) error

	// GetByUserID returns ErrNoAccessToken when the user has no record.
	GetByUserID(ctx context.Context, userID string) (*AccessTokenRecord, error)

	// FindByItemID returns ErrItemNotFound when no record holds the item.
	FindByItemID(ctx context.Context, itemID string) (*AccessTokenRecord, error)

	// MarkSynced sets status SYNCED, stamps lastSyncedAt and bumps syncCount.
	MarkSynced(ctx context.Context, userID string, at time.Time) error

	// SetStatus updates only the link status.
	SetStatus(ctx context.Context, userID string, status LinkStatus) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID string) error
}
