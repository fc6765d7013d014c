package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"budgetrelay/internal/domain/item"
)

// ItemRepository implements item.Repository on the plaid_tokens table.
type ItemRepository struct {
	db *DB
}

var _ item.Repository = (*ItemRepository)(nil)

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// upsertTokenSQL writes a fresh row, or overwrites every column of an
// existing one including the sync bookkeeping.
const upsertTokenSQL = `
	INSERT INTO plaid_tokens (user_id, access_token, item_id, status, last_synced_at, sync_count, created_at)
	VALUES ($1, $2, $3, $4, NULL, 0, NOW())
	ON CONFLICT (user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    item_id = EXCLUDED.item_id,
		    status = EXCLUDED.status,
		    last_synced_at = NULL,
		    sync_count = 0,
		    created_at = NOW()
`

// Save replaces the user's row in one statement, resetting status and
// sync counters, so concurrent exchanges end with one complete row.
func (r *ItemRepository) Save(ctx context.Context, params item.SaveParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, upsertTokenSQL, params.UserID, params.AccessToken, params.ItemID, string(item.StatusLinked))
	if err != nil {
		return fmt.Errorf("%w: failed to save access token for user %s: %w", item.ErrVault, params.UserID, err)
	}
	return nil
}

const selectRecord = `
	SELECT user_id, access_token, item_id, status, last_synced_at, sync_count, created_at
	FROM plaid_tokens
`

func (r *ItemRepository) GetByUserID(ctx context.Context, userID string) (*item.AccessTokenRecord, error) {
	rec, err := r.scan(r.db.QueryRowContext(ctx, selectRecord+` WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, item.ErrNoAccessToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get access token for user %s: %w", item.ErrVault, userID, err)
	}
	return rec, nil
}

func (r *ItemRepository) FindByItemID(ctx context.Context, itemID string) (*item.AccessTokenRecord, error) {
	rec, err := r.scan(r.db.QueryRowContext(ctx, selectRecord+` WHERE item_id = $1 LIMIT 1`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, item.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find item %s: %w", item.ErrVault, itemID, err)
	}
	return rec, nil
}

func (r *ItemRepository) scan(row *tracedRow) (*item.AccessTokenRecord, error) {
	var rec item.AccessTokenRecord
	var st string
	var lastSynced sql.NullTime
	err := row.Scan(&rec.UserID, &rec.AccessToken, &rec.ItemID, &st, &lastSynced, &rec.SyncCount, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = item.LinkStatus(st)
	if lastSynced.Valid {
		t := lastSynced.Time
		rec.LastSyncedAt = &t
	}
	return &rec, nil
}

func (r *ItemRepository) MarkSynced(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE plaid_tokens
		SET status = $2, last_synced_at = $3, sync_count = sync_count + 1
		WHERE user_id = $1
	`
	return r.exec(ctx, userID, query, userID, string(item.StatusSynced), at)
}

func (r *ItemRepository) SetStatus(ctx context.Context, userID string, status item.LinkStatus) error {
	if !item.IsValidStatus(status) {
		return item.ErrInvalidStatus
	}
	return r.exec(ctx, userID, `UPDATE plaid_tokens SET status = $2 WHERE user_id = $1`, userID, string(status))
}

func (r *ItemRepository) exec(ctx context.Context, userID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to update token row for user %s: %w", item.ErrVault, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %w", item.ErrVault, err)
	}
	if n == 0 {
		return item.ErrNoAccessToken
	}
	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM plaid_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%w: failed to delete access token for user %s: %w", item.ErrVault, userID, err)
	}
	return nil
}
