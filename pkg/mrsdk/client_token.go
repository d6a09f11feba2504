package mrsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// tokenErrorMessage is used when the token endpoint fails without a usable
// error body.
const tokenErrorMessage = "An error occurred when trying to GET token data from MR API"

// requestToken performs the OAuth2 password grant against the token endpoint.
// The returned token has no CreatedAt; the caller stamps it.
func (c *Client) requestToken(ctx context.Context) (*Token, error) {
	u, err := url.Parse(c.cfg.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid token url: %w", err)
	}

	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("client_secret", c.cfg.ClientSecret)
	q.Set("grant_type", "password")
	q.Set("username", c.cfg.Username)
	q.Set("password", c.cfg.Password)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	safeURL := slogx.RedactURL(u)

	resp, err := c.auth.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", redactURLError(err, safeURL))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, parseTokenError(resp, body, safeURL)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BadRequestError{AuthError{
			Message:      tokenErrorMessage,
			ReasonPhrase: reasonPhrase(resp),
			StatusCode:   resp.StatusCode,
			URL:          safeURL,
		}}
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &InvalidResponseError{URL: safeURL, Reason: "token response is not valid JSON", Err: err}
	}
	if tok.AccessToken == "" || tok.ExpiresIn <= 0 {
		return nil, &InvalidResponseError{URL: safeURL, Reason: "token response lacks access_token or expires_in"}
	}
	tok.CreatedAt = 0

	return &tok, nil
}

// parseTokenError maps a 4xx token response onto the authentication error
// taxonomy.
func parseTokenError(resp *http.Response, body []byte, safeURL string) error {
	base := AuthError{
		ReasonPhrase: reasonPhrase(resp),
		StatusCode:   resp.StatusCode,
		URL:          safeURL,
	}

	var errBody map[string]any
	if err := json.Unmarshal(body, &errBody); err != nil || errBody == nil {
		base.Message = tokenErrorMessage
		return &BadRequestError{base}
	}

	base.Body = errBody
	base.Code, _ = errBody["error"].(string)
	description, _ := errBody["error_description"].(string)

	switch base.Code {
	case ErrorCodeInvalidClient:
		base.Message = orDefault(description, descriptionNotAvailable)
		return &InvalidClientError{base}
	case ErrorCodeUnauthorizedClient:
		base.Message = orDefault(description, descriptionNotAvailable)
		return &UnauthorizedClientError{base}
	default:
		base.Message = orDefault(description, transportMessage(resp, safeURL))
		return &BadRequestError{base}
	}
}

// transportMessage mimics the message an HTTP client raises for a 4xx.
func transportMessage(resp *http.Response, safeURL string) string {
	return fmt.Sprintf(
		"Client error response [url] %s [status code] %d [reason phrase] %s",
		safeURL,
		resp.StatusCode,
		reasonPhrase(resp),
	)
}

// redactURLError replaces the URL the transport embeds in its errors, which
// carries credentials in the query string.
func redactURLError(err error, safeURL string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = safeURL
	}
	return err
}

func reasonPhrase(resp *http.Response) string {
	// resp.Status is "400 Bad Request"; fall back to the canonical text.
	if _, phrase, ok := strings.Cut(resp.Status, " "); ok && phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
