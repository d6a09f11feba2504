package slogx

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/idx"
)

// redactedParams are query parameters whose values never reach a log line or
// an error message.
var redactedParams = []string{"access_token", "client_secret", "password"}

// RedactURL returns u as a string with credential query parameters masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.User = nil

	q := c.Query()
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	return c.String()
}

// Transport logs every outbound request with the logger found in the request
// context and tags it with an X-Request-ID.
type Transport struct {
	Base http.RoundTripper
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get(HeaderRequestID)
	if reqID == "" {
		reqID = RequestID(req.Context())
		if reqID == "" {
			reqID = idx.New().String()
		}
		req = req.Clone(req.Context())
		req.Header.Set(HeaderRequestID, reqID)
	}

	logger := FromContext(req.Context())
	if RequestID(req.Context()) != reqID {
		logger = logger.With("req_id", reqID)
	}
	logger = logger.With("method", req.Method, "url", RedactURL(req.URL))

	resp, err := t.Base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("outbound_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("outbound_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
