package mrsdk

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/maresidence/internal/mockapi"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

const (
	testClientID     = "1_client"
	testClientSecret = "s3cr3t"
	testUsername     = "api@example.org"
	testPassword     = "p4ssw0rd"
	testTokenTTL     = 60 * time.Second
)

// fakeClock is shared by the client and the provider so token expiry can be
// driven from tests.
type fakeClock struct {
	unix atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.unix.Store(1_700_000_000)
	return c
}

func (c *fakeClock) Now() time.Time { return time.Unix(c.unix.Load(), 0) }

func (c *fakeClock) Advance(d time.Duration) { c.unix.Add(int64(d / time.Second)) }

func newProvider(t *testing.T, clock *fakeClock) *mockapi.Server {
	t.Helper()

	srv, err := mockapi.New(mockapi.Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		Username:     testUsername,
		Password:     testPassword,
		TokenTTL:     testTokenTTL,
		Now:          clock.Now,
		Logger:       slogx.Discard(),
	})
	require.NoError(t, err)
	return srv
}

func testConfig(baseURL string) Config {
	return Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		Username:     testUsername,
		Password:     testPassword,
		Endpoint:     baseURL,
		TokenURL:     baseURL + mockapi.TokenPath,
	}
}

func newTestClient(t *testing.T, cfg Config, clock *fakeClock, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithLogger(slogx.Discard()), WithClock(clock.Now)}, opts...)
	client, err := New(cfg, opts...)
	require.NoError(t, err)
	return client
}

// setupMock starts the fake provider and returns a client pointed at it.
func setupMock(t *testing.T, opts ...Option) (*Client, *mockapi.Server, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	provider := newProvider(t, clock)
	provider.SeedDemo()

	ts := newHTTPTestServer(t, provider)
	return newTestClient(t, testConfig(ts.URL), clock, opts...), provider, clock
}

func newHTTPTestServer(t *testing.T, h http.Handler) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

// recordedRequest is a resource request as seen by a capture server.
type recordedRequest struct {
	Method string
	Path   string // escaped
	Query  url.Values
	Header http.Header
	Body   []byte
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) last(t *testing.T) recordedRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.reqs, "no request recorded")
	return r.reqs[len(r.reqs)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

// setupCapture serves tokens from the fake provider and answers every other
// request with respond, recording it first.
func setupCapture(
	t *testing.T,
	respond func(w http.ResponseWriter, r *http.Request),
	opts ...Option,
) (*Client, *recorder) {
	t.Helper()

	clock := newFakeClock()
	provider := newProvider(t, clock)
	rec := &recorder{}

	mux := http.NewServeMux()
	mux.Handle(mockapi.TokenPath, provider)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		rec.mu.Unlock()
		respond(w, r)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return newTestClient(t, testConfig(ts.URL), clock, opts...), rec
}

// respondJSON returns a handler answering code with body.
func respondJSON(code int, body any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondRaw returns a handler answering code with a literal body.
func respondRaw(code int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}
