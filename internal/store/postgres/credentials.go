package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/user/finclaw/internal/store"
	"github.com/user/finclaw/internal/types"
)

func (s *Store) Token(ctx context.Context, owner types.OwnerID, provider string) (*types.OAuthToken, error) {
	token := &types.OAuthToken{}
	err := s.db.QueryRow(ctx, `
		SELECT owner_id, provider, access_token, refresh_token, expires_at
		FROM oauth_tokens
		WHERE owner_id = $1 AND provider = $2`,
		owner, provider,
	).Scan(&token.OwnerID, &token.Provider, &token.AccessToken, &token.RefreshToken, &token.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	return token, nil
}

func (s *Store) SaveToken(ctx context.Context, token *types.OAuthToken) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO oauth_tokens (owner_id, provider, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (owner_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token <> '' THEN EXCLUDED.refresh_token ELSE oauth_tokens.refresh_token END,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()`,
		token.OwnerID, token.Provider, token.AccessToken, token.RefreshToken, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *Store) Connected(ctx context.Context, owner types.OwnerID, provider string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM oauth_tokens WHERE owner_id = $1 AND provider = $2)`,
		owner, provider,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query token existence: %w", err)
	}
	return exists, nil
}
