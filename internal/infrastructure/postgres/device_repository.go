package postgres

import (
	"context"
	"fmt"

	"budgetrelay/internal/domain/notification"
)

// DeviceRepository implements notification.Repository on device_tokens.
type DeviceRepository struct {
	db *DB
}

var _ notification.Repository = (*DeviceRepository)(nil)

func NewDeviceRepository(db *DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers a device token. If the token exists for a different
// user, it is reassigned.
func (r *DeviceRepository) Upsert(ctx context.Context, params notification.RegisterParams) (*notification.DeviceToken, error) {
	query := `
		INSERT INTO device_tokens (token, user_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
			SET user_id = EXCLUDED.user_id,
			    platform = EXCLUDED.platform,
			    updated_at = NOW()
		RETURNING token, user_id, platform, updated_at
	`

	var dt notification.DeviceToken
	err := r.db.QueryRowContext(ctx, query, params.Token, params.UserID, params.Platform).Scan(
		&dt.Token, &dt.UserID, &dt.Platform, &dt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token: %w", err)
	}

	return &dt, nil
}

func (r *DeviceRepository) ListTokensByUserID(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT token FROM device_tokens WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, tok)
	}

	return tokens, rows.Err()
}

func (r *DeviceRepository) DeleteToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}
