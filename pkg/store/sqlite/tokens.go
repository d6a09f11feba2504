package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

// TokenStore keeps one token row per store key.
type TokenStore struct {
	db  *sql.DB
	key string
	now func() time.Time
}

var _ mrsdk.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Token(ctx context.Context) (*mrsdk.Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, token_type, scope, expires_in, created_at
		FROM oauth_tokens
		WHERE store_key = ?`, s.key)

	var tok mrsdk.Token
	err := row.Scan(&tok.AccessToken, &tok.TokenType, &tok.Scope, &tok.ExpiresIn, &tok.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token %q: %w", s.key, err)
	}
	return &tok, nil
}

func (s *TokenStore) SetToken(ctx context.Context, tok mrsdk.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (store_key, access_token, token_type, scope, expires_in, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (store_key) DO UPDATE SET
			access_token = excluded.access_token,
			token_type   = excluded.token_type,
			scope        = excluded.scope,
			expires_in   = excluded.expires_in,
			created_at   = excluded.created_at,
			updated_at   = excluded.updated_at`,
		s.key, tok.AccessToken, tok.TokenType, tok.Scope, tok.ExpiresIn, tok.CreatedAt, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store token %q: %w", s.key, err)
	}
	return nil
}

func (s *TokenStore) IsExpired(ctx context.Context, now time.Time) (bool, error) {
	return mrsdk.ExpiredAt(ctx, s, now)
}
