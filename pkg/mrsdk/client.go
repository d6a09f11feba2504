package mrsdk

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/cryptox"
	"github.com/aussiebroadwan/maresidence/pkg/respcache"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// DefaultTimeout bounds every outbound call unless a custom *http.Client is
// supplied.
const DefaultTimeout = 10 * time.Second

// Client is a client for the ma-residence API. It owns one TokenStore and
// authenticates on demand before every resource call.
// A Client is safe for concurrent use.
type Client struct {
	cfg Config

	// api carries resource calls through the response cache; auth is used for
	// the token endpoint and never caches.
	api  *http.Client
	auth *http.Client

	tokens   TokenStore
	cache    respcache.Store
	logger   *slog.Logger
	now      func() time.Time
	autoAuth bool

	// mu serialises the expiry check and token replacement so concurrent
	// callers trigger a single exchange.
	mu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc as the transport. Its Transport is wrapped with the
// logging and caching layers; hc itself is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.api = hc
	}
}

// WithTokenStore replaces the default in-memory token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		c.tokens = store
	}
}

// WithResponseCache replaces the default in-memory response cache backend.
// Passing nil disables response caching.
func WithResponseCache(store respcache.Store) Option {
	return func(c *Client) {
		c.cache = store
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock overrides the time source used to stamp and judge tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithoutAutoAuthenticate makes resource calls fail with ErrNoToken instead of
// authenticating when no valid token is stored.
func WithoutAutoAuthenticate() Option {
	return func(c *Client) {
		c.autoAuth = false
	}
}

// New validates cfg and builds a Client. It fails with a *ConfigError when a
// mandatory option is missing.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg.withDefaults(),
		tokens:   NewMemoryStore(),
		cache:    respcache.NewMemoryStore(),
		logger:   slog.Default(),
		now:      time.Now,
		autoAuth: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.api
	if base == nil {
		base = &http.Client{Timeout: DefaultTimeout}
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = slogx.NewTransport(transport)

	auth := *base
	auth.Transport = transport
	c.auth = &auth

	api := *base
	api.Transport = transport
	if c.cache != nil {
		api.Transport = respcache.NewTransport(transport, c.cache, c.cfg.CacheTTL, c.cacheNamespace())
	}
	c.api = &api

	return c, nil
}

// ClientID returns the configured client id.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// TokenStore returns the store holding the client's token.
func (c *Client) TokenStore() TokenStore {
	return c.tokens
}

// cacheNamespace scopes cached responses to one credential set. Clients of the
// same application logged in as different users never share entries.
func (c *Client) cacheNamespace() string {
	return "api_client_" + c.cfg.ClientID + ":" + cryptox.Fingerprint(c.cfg.ClientID, c.cfg.Username, c.cfg.TokenURL)
}
