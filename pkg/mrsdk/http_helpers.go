package mrsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/maresidence/pkg/respcache"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// Fetch performs an authenticated GET on path and returns the decoded body.
// Options other than "version" and "access_token" become query parameters;
// "version" becomes a versioned Accept header and must be an integer.
// forceRevalidate bypasses any cached copy of the response.
func (c *Client) Fetch(ctx context.Context, path string, opts Options, forceRevalidate bool) (Object, error) {
	query, version, err := splitOptions(opts)
	if err != nil {
		return nil, err
	}

	auth, err := c.AuthQuery(ctx)
	if err != nil {
		return nil, err
	}
	query.Set(OptionAccessToken, auth.Get(OptionAccessToken))

	headers := map[string]string{}
	if version != "" {
		headers["Accept"] = c.accept(version)
	}

	if forceRevalidate {
		ctx = respcache.WithRevalidate(ctx)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, query, nil, headers)
	if err != nil {
		return nil, err
	}

	return decodeObject(resp, http.StatusOK)
}

// FetchEnveloped is Fetch with the stricter list shape check some endpoints
// honour: the body must carry a "request" key and the envelope key.
func (c *Client) FetchEnveloped(
	ctx context.Context,
	path, envelope string,
	opts Options,
	forceRevalidate bool,
) (Object, error) {
	body, err := c.Fetch(ctx, path, opts, forceRevalidate)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, key := range []string{"request", envelope} {
		if _, ok := body[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &UnexpectedResponseShapeError{Envelope: envelope, Missing: missing}
	}

	return body, nil
}

// Create POSTs fields wrapped in the expected envelope to path and returns the
// created entity, i.e. the value under the envelope key of the response.
func (c *Client) Create(
	ctx context.Context,
	path string,
	version int,
	fields Object,
	expect CreateExpectation,
) (Object, error) {
	if fields == nil {
		fields = Object{}
	}

	payload, err := json.Marshal(map[string]any{expect.Envelope: fields})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	query, err := c.AuthQuery(ctx)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Accept":       c.accept(strconv.Itoa(version)),
		"Content-Type": "application/json",
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, query, bytes.NewReader(payload), headers)
	if err != nil {
		return nil, err
	}

	accepted := []int{http.StatusCreated}
	if expect.AcceptConflict {
		accepted = append(accepted, http.StatusConflict)
		if resp.StatusCode == http.StatusConflict {
			slogx.FromContext(slogx.Ensure(ctx, c.logger)).Info(
				"resource already exists, using conflict response",
				"path", path,
				"envelope", expect.Envelope,
			)
		}
	}

	body, err := decodeObject(resp, accepted...)
	if err != nil {
		var invalid *InvalidResponseError
		if errors.As(err, &invalid) {
			return nil, &UnexpectedResponseShapeError{Envelope: expect.Envelope}
		}
		return nil, err
	}

	return unwrapEnvelope(body, expect)
}

// unwrapEnvelope checks the post-condition shared by all create calls.
func unwrapEnvelope(body Object, expect CreateExpectation) (Object, error) {
	raw, ok := body[expect.Envelope]
	if !ok {
		return nil, &UnexpectedResponseShapeError{Envelope: expect.Envelope}
	}

	entity, ok := raw.(map[string]any)
	if !ok {
		return nil, &UnexpectedResponseShapeError{Envelope: expect.Envelope, Missing: expect.Required}
	}

	var missing []string
	for _, key := range expect.Required {
		if _, ok := entity[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &UnexpectedResponseShapeError{Envelope: expect.Envelope, Missing: missing}
	}

	return entity, nil
}

// doRequest sends a request to the API endpoint. The client logger is attached
// to the context unless the caller already carries one.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	ctx = slogx.Ensure(ctx, c.logger)

	u, err := url.Parse(c.cfg.Endpoint + path)
	if err != nil {
		return nil, fmt.Errorf("invalid resource url: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", redactURLError(err, slogx.RedactURL(u)))
	}

	return resp, nil
}

// decodeObject reads resp and decodes it as a JSON object. A status outside
// expected yields an *APIRequestError.
func decodeObject(resp *http.Response, expected ...int) (Object, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	safeURL := ""
	method := ""
	if resp.Request != nil {
		safeURL = slogx.RedactURL(resp.Request.URL)
		method = resp.Request.Method
	}

	if !slices.Contains(expected, resp.StatusCode) {
		apiErr := &APIRequestError{
			Method:     method,
			URL:        safeURL,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			apiErr.Code = errResp.Error
			apiErr.Description = errResp.ErrorDescription
		}
		return nil, apiErr
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &InvalidResponseError{URL: safeURL, Reason: "body is not valid JSON", Err: err}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &InvalidResponseError{URL: safeURL, Reason: "body is not a JSON object"}
	}

	return obj, nil
}

// splitOptions separates query parameters from the version directive.
func splitOptions(opts Options) (url.Values, string, error) {
	query := url.Values{}
	version := ""

	for key, value := range opts {
		switch key {
		case OptionAccessToken:
			continue
		case OptionVersion:
			v, err := formatVersion(value)
			if err != nil {
				return nil, "", err
			}
			version = v
		default:
			query[key] = queryValues(value)
		}
	}

	return query, version, nil
}

// formatVersion renders a version option as a decimal integer. Integral
// floats and strings such as "2.0" are normalised; anything else is rejected.
func formatVersion(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case float64:
		return integralFloat(x, v)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", fmt.Errorf("%w: got %q", ErrInvalidVersion, x)
		}
		return integralFloat(f, v)
	default:
		return "", fmt.Errorf("%w: got %T", ErrInvalidVersion, v)
	}
}

func integralFloat(f float64, orig any) (string, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("%w: got %v", ErrInvalidVersion, orig)
	}
	return strconv.FormatInt(int64(f), 10), nil
}

func queryValues(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{""}
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case bool:
		return []string{strconv.FormatBool(x)}
	default:
		return []string{fmt.Sprint(x)}
	}
}

func (c *Client) accept(version string) string {
	return fmt.Sprintf("application/%s.v%s", c.cfg.Vendor, version)
}
