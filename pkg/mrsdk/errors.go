package mrsdk

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// OAuth2 Error Codes returned by the token endpoint
// ============================================================================

const (
	ErrorCodeInvalidClient      = "invalid_client"
	ErrorCodeUnauthorizedClient = "unauthorized_client"
	ErrorCodeInvalidGrant       = "invalid_grant"
	ErrorCodeInvalidRequest     = "invalid_request"
)

// descriptionNotAvailable is used when the provider omits error_description.
const descriptionNotAvailable = "Error description not available"

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// ErrAuthentication is matched (errors.Is) by every error produced by a
	// failed token exchange: InvalidClientError, UnauthorizedClientError and
	// BadRequestError.
	ErrAuthentication = errors.New("mrsdk: authentication failed")

	// ErrNoToken is returned when an authenticated call is attempted without a
	// valid token and automatic authentication is disabled.
	ErrNoToken = errors.New("mrsdk: no valid access token available")

	// ErrInvalidVersion is returned when the "version" option is not an
	// integer.
	ErrInvalidVersion = errors.New("mrsdk: version must be an integer")
)

// ============================================================================
// ConfigError
// ============================================================================

// ConfigError reports a missing mandatory configuration option.
type ConfigError struct {
	Option string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing mandatory %q option", e.Option)
}

// ============================================================================
// Authentication errors
// ============================================================================

// AuthError carries the details of a rejected token exchange. It is embedded by
// the three concrete authentication error types so callers can branch on the
// OAuth failure class with errors.As.
type AuthError struct {
	// Code is the OAuth2 error code from the response body, if any.
	Code string

	// Message is the error_description, or a fallback when none was sent.
	Message string

	// ReasonPhrase is the HTTP reason phrase (e.g. "Bad Request").
	ReasonPhrase string

	StatusCode int
	URL        string

	// Body is the decoded error body. Nil when the body was not JSON.
	Body map[string]any
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is(err, ErrAuthentication) match every auth failure.
func (e *AuthError) Unwrap() error {
	return ErrAuthentication
}

// InvalidClientError is returned when the provider rejects the client
// credentials (error "invalid_client").
type InvalidClientError struct {
	AuthError
}

// UnauthorizedClientError is returned when the client is not allowed to use the
// password grant (error "unauthorized_client").
type UnauthorizedClientError struct {
	AuthError
}

// BadRequestError is returned for every other failed token exchange.
type BadRequestError struct {
	AuthError
}

// ============================================================================
// Resource errors
// ============================================================================

// APIRequestError is returned when a resource call answers with an unexpected
// status code.
type APIRequestError struct {
	Method     string
	URL        string // access_token is redacted
	StatusCode int

	// Code and Description are filled from an {error, error_description}
	// envelope when the provider sent one.
	Code        string
	Description string

	Body []byte
}

// Error implements the error interface.
func (e *APIRequestError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	if e.Code != "" {
		msg += fmt.Sprintf(" (%s", e.Code)
		if e.Description != "" {
			msg += ": " + e.Description
		}
		msg += ")"
	}
	return msg
}

// InvalidResponseError is returned when a response body cannot be decoded into a
// JSON object.
type InvalidResponseError struct {
	URL    string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InvalidResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response from %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid response from %s: %s", e.URL, e.Reason)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}

// UnexpectedResponseShapeError is returned when a decoded body lacks the
// envelope or the keys the provider promises for it.
type UnexpectedResponseShapeError struct {
	Envelope string
	Missing  []string
}

// Error implements the error interface.
func (e *UnexpectedResponseShapeError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("unexpected response shape: missing %q envelope", e.Envelope)
	}
	return fmt.Sprintf(
		"unexpected response shape for %q: missing key(s) %s",
		e.Envelope,
		strings.Join(e.Missing, ", "),
	)
}
