package respcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/cryptox"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// HeaderCache is set to "HIT" on responses served from the cache.
const HeaderCache = "X-Cache"

// ignoredParams never take part in the cache key. The access token rotates
// while the resource it reads does not, so callers must scope Namespace to one
// credential set.
var ignoredParams = []string{"access_token"}

type revalidateKey struct{}

// WithRevalidate marks every request made with ctx to bypass cached copies.
// The fresh response still replaces the cached one.
func WithRevalidate(ctx context.Context) context.Context {
	return context.WithValue(ctx, revalidateKey{}, true)
}

// Revalidate reports whether ctx carries the revalidation flag.
func Revalidate(ctx context.Context) bool {
	v, _ := ctx.Value(revalidateKey{}).(bool)
	return v
}

// Transport is an http.RoundTripper that serves GET requests from a Store.
// Only 200 responses are cached.
type Transport struct {
	Base      http.RoundTripper
	Store     Store
	TTL       time.Duration
	Namespace string // prefixed to every key; one per credential set
}

// NewTransport wraps base (http.DefaultTransport when nil) with a cache.
func NewTransport(base http.RoundTripper, store Store, ttl time.Duration, namespace string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		Base:      base,
		Store:     store,
		TTL:       ttl,
		Namespace: namespace,
	}
}

// entry is the serialised form of a cached response.
type entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || t.Store == nil {
		return t.Base.RoundTrip(req)
	}

	ctx := req.Context()
	log := slogx.FromContext(ctx)
	key := Key(t.Namespace, req)

	if !Revalidate(ctx) {
		raw, ok, err := t.Store.Get(ctx, key)
		if err != nil {
			log.Warn("response cache read failed", "key", key, "error", err)
		} else if ok {
			var e entry
			if err := json.Unmarshal(raw, &e); err == nil {
				log.Debug("response cache hit", "key", key)
				return e.response(req), nil
			}
			_ = t.Store.Delete(ctx, key)
		}
	}

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	raw, err := json.Marshal(entry{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	})
	if err == nil {
		if err := t.Store.Set(ctx, key, raw, t.TTL); err != nil {
			log.Warn("response cache write failed", "key", key, "error", err)
		}
	}

	return resp, nil
}

func (e entry) response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(HeaderCache, "HIT")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Key derives the cache key of req: the namespace followed by a fingerprint of
// the method, the URL without ignored parameters and the Accept header.
func Key(namespace string, req *http.Request) string {
	u := *req.URL
	q := u.Query()
	for _, p := range ignoredParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()

	return namespace + ":" + cryptox.Fingerprint(req.Method, stripUser(&u), req.Header.Get("Accept"))
}

func stripUser(u *url.URL) string {
	u.User = nil
	return u.String()
}
