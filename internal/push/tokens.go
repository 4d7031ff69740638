package push

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenStore tracks device push tokens. Registration keeps only the latest
// token per device: clients re-register opportunistically on token
// rotation, so the upsert always wins over whatever was stored.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a token store over the given pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Upsert records the latest token for a user's device.
func (t *TokenStore) Upsert(ctx context.Context, userID, deviceID, token string) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO user_devices (user_id, device_id, token, is_active, updated_at)
		VALUES ($1, $2, $3, true, NOW())
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET token = EXCLUDED.token, is_active = true, updated_at = NOW()`,
		userID, deviceID, token)
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// Deactivate marks a device token inactive, e.g. after the push provider
// reports it unregistered.
func (t *TokenStore) Deactivate(ctx context.Context, userID, deviceID string) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE user_devices SET is_active = false, updated_at = NOW()
		WHERE user_id = $1 AND device_id = $2`, userID, deviceID)
	if err != nil {
		return fmt.Errorf("deactivate device token: %w", err)
	}
	return nil
}

// Active returns the user's active device tokens.
func (t *TokenStore) Active(ctx context.Context, userID string) ([]string, error) {
	rows, err := t.pool.Query(ctx, "get_user_device_tokens", userID)
	if err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}
