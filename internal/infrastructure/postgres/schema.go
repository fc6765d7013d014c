package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the vault tables.
// Safe to call on every start - uses IF NOT EXISTS.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS plaid_tokens (
    user_id TEXT PRIMARY KEY,
    access_token TEXT NOT NULL,
    item_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'LINKED' CHECK (status IN ('LINKED', 'SYNCED', 'NEEDS_RELINK')),
    last_synced_at TIMESTAMPTZ,
    sync_count BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_plaid_tokens_item_id ON plaid_tokens(item_id);

CREATE TABLE IF NOT EXISTS device_tokens (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    platform TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_device_tokens_user_id ON device_tokens(user_id);
`
