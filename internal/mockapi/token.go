package mockapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// tokenResponse is what the token endpoint returns on success.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope,omitempty"`
}

// handleToken serves GET /oauth/v2/apitoken with the password grant only.
// Credentials travel in the query string, as the hosted provider expects.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)
	log := slogx.FromContext(r.Context())
	noCache(w)

	q := r.URL.Query()

	grantType := strings.TrimSpace(q.Get("grant_type"))
	if grantType == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid grant_type parameter or parameter missing")
		return
	}

	if !equal(q.Get("client_id"), s.cfg.ClientID) || !equal(q.Get("client_secret"), s.cfg.ClientSecret) {
		log.Warn("token request with bad client credentials")
		writeError(w, http.StatusBadRequest, "invalid_client", "The client credentials are invalid")
		return
	}

	if grantType != "password" {
		writeError(w, http.StatusBadRequest, "unauthorized_client", "The grant type is unauthorized for this client_id")
		return
	}

	if !equal(q.Get("username"), s.cfg.Username) || !equal(q.Get("password"), s.cfg.Password) {
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid username and password combination")
		return
	}

	signed, err := s.issue(q.Get("username"))
	if err != nil {
		log.Error("failed to sign access token", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.cfg.TokenTTL.Seconds()),
		TokenType:   "bearer",
		Scope:       "user",
	})
}

// issue signs an HS256 access token for subject.
func (s *Server) issue(subject string) (string, error) {
	now := s.cfg.Now()

	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.cfg.ClientID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		ID:        s.ids.New().String(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

// verify checks the signature, issuer and expiry of raw against the server
// clock.
func (s *Server) verify(raw string) (*jwt.RegisteredClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.cfg.Now),
		jwt.WithExpirationRequired(),
	)

	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// authorized rejects requests without a valid access_token query parameter.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resourceCalls.Add(1)

		raw := r.URL.Query().Get("access_token")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "access_denied", "OAuth2 authentication required")
			return
		}

		if _, err := s.verify(raw); err != nil {
			desc := "The access token provided is invalid."
			if errors.Is(err, jwt.ErrTokenExpired) {
				desc = "The access token provided has expired."
			}
			slogx.FromContext(r.Context()).Debug("access token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid_grant", desc)
			return
		}

		next(w, r)
	}
}

func equal(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
