package mrsdk

import (
	"context"
	"sync"
	"time"
)

// Token is an access credential issued by the token endpoint. CreatedAt is
// stamped by the client when the token is received; the provider never sends it.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	Scope       string `json:"scope,omitempty"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// CreatedAt is the receipt time in epoch seconds.
	CreatedAt int64 `json:"created_at"`
}

// Present reports whether the token carries everything needed to judge its
// expiry. Partial tokens are treated as absent.
func (t Token) Present() bool {
	return t.AccessToken != "" && t.ExpiresIn > 0 && t.CreatedAt > 0
}

// ExpiresAt returns the instant at which the token stops being valid.
func (t Token) ExpiresAt() time.Time {
	return time.Unix(t.CreatedAt+t.ExpiresIn, 0)
}

// Expired reports whether the token must be replaced at now. The boundary is
// closed: a token created exactly ExpiresIn seconds ago is expired. margin moves
// the expiry earlier.
func (t Token) Expired(now time.Time, margin time.Duration) bool {
	if !t.Present() {
		return true
	}
	deadline := t.CreatedAt + t.ExpiresIn - int64(margin/time.Second)
	return deadline <= now.Unix()
}

// TokenStore holds at most one Token for one credential set.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	// Token returns the stored token, or nil when nothing is stored.
	Token(ctx context.Context) (*Token, error)

	// SetToken replaces the stored token unconditionally.
	SetToken(ctx context.Context, tok Token) error

	// IsExpired reports whether the stored token is absent, partial, or past
	// its expiry at now.
	IsExpired(ctx context.Context, now time.Time) (bool, error)
}

// MemoryStore is the default in-process TokenStore.
type MemoryStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Token returns a copy of the stored token.
func (s *MemoryStore) Token(_ context.Context) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil, nil
	}
	tok := *s.token
	return &tok, nil
}

// SetToken replaces the stored token.
func (s *MemoryStore) SetToken(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = &tok
	return nil
}

// IsExpired applies the strict expiry policy to the stored token.
func (s *MemoryStore) IsExpired(ctx context.Context, now time.Time) (bool, error) {
	tok, _ := s.Token(ctx)
	return tokenExpired(tok, now, 0), nil
}

// tokenExpired treats a nil token as expired.
func tokenExpired(tok *Token, now time.Time, margin time.Duration) bool {
	if tok == nil {
		return true
	}
	return tok.Expired(now, margin)
}

// ExpiredAt is a helper for TokenStore implementations backed by external
// storage: it loads the token and applies the strict expiry policy.
func ExpiredAt(ctx context.Context, store TokenStore, now time.Time) (bool, error) {
	tok, err := store.Token(ctx)
	if err != nil {
		return true, err
	}
	return tokenExpired(tok, now, 0), nil
}
