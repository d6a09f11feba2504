package mrsdk

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// Authenticate obtains a token through the password grant and stores it. It is
// a no-op when the stored token is still valid.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.EnsureAuthenticated(ctx)
	return err
}

// EnsureAuthenticated returns a valid access token, performing the password
// grant first when the stored token is absent or expired. Concurrent callers
// share a single exchange.
func (c *Client) EnsureAuthenticated(ctx context.Context) (string, error) {
	if tok, ok := c.validToken(ctx); ok {
		return tok.AccessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the lock (another goroutine may have
	// authenticated).
	if tok, ok := c.validToken(ctx); ok {
		return tok.AccessToken, nil
	}

	log := slogx.FromContext(slogx.Ensure(ctx, c.logger))
	log.Info("requesting access token", "token_url", c.cfg.TokenURL, "client_id", c.cfg.ClientID)

	tok, err := c.requestToken(ctx)
	if err != nil {
		log.Warn("access token request failed", "error", err)
		return "", err
	}

	tok.CreatedAt = c.now().Unix()
	if err := c.tokens.SetToken(ctx, *tok); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	log.Info("access token stored",
		"expires_in", tok.ExpiresIn,
		"expires_at", tok.ExpiresAt().UTC().Format(time.RFC3339),
	)

	return tok.AccessToken, nil
}

// IsAuthenticated reports whether a present, unexpired token is stored.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, ok := c.validToken(ctx)
	return ok
}

// AuthQuery returns the query parameters that authorise a resource call.
// Without auto-authentication it fails with ErrNoToken when no valid token is
// stored.
func (c *Client) AuthQuery(ctx context.Context) (url.Values, error) {
	var accessToken string

	if c.autoAuth {
		tok, err := c.EnsureAuthenticated(ctx)
		if err != nil {
			return nil, err
		}
		accessToken = tok
	} else {
		tok, ok := c.validToken(ctx)
		if !ok {
			return nil, ErrNoToken
		}
		accessToken = tok.AccessToken
	}

	return url.Values{"access_token": {accessToken}}, nil
}

// validToken asks the store for the strict expiry verdict, then applies the
// configured margin on top. Store errors are logged and count as "no valid
// token" so the caller re-authenticates.
func (c *Client) validToken(ctx context.Context) (*Token, bool) {
	now := c.now()

	expired, err := c.tokens.IsExpired(ctx, now)
	if err != nil {
		c.logStoreError(ctx, "is_expired", err)
		return nil, false
	}
	if expired {
		return nil, false
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.logStoreError(ctx, "token", err)
		return nil, false
	}
	if tokenExpired(tok, now, c.cfg.ExpiryMargin) {
		return nil, false
	}
	return tok, true
}

func (c *Client) logStoreError(ctx context.Context, op string, err error) {
	slogx.FromContext(slogx.Ensure(ctx, c.logger)).Warn("token store read failed",
		"op", op,
		"store_key", c.cfg.TokenStoreKey,
		"error", err,
	)
}
