package mrsdk

import (
	"strings"
	"time"
)

const (
	// DefaultCacheTTL is how long GET responses stay in the response cache.
	DefaultCacheTTL = 300 * time.Second

	// DefaultVendor is the media type vendor used in versioned Accept headers.
	DefaultVendor = "ma-residence"

	// SandboxExpiryMargin is the early-expiry window some deployments use to
	// refresh a token shortly before the provider rejects it.
	SandboxExpiryMargin = 30 * time.Second
)

// Provider URLs and token store keys for the two hosted environments.
const (
	ProductionEndpoint      = "https://www.ma-residence.fr"
	ProductionTokenURL      = "https://www.ma-residence.fr/oauth/v2/apitoken"
	ProductionTokenStoreKey = "mr_api_client.oauth_token"

	SandboxEndpoint      = "https://www.preprod.ma-residence.fr"
	SandboxTokenURL      = "https://www.preprod.ma-residence.fr/oauth/v2/apitoken"
	SandboxTokenStoreKey = "mr_sandbox_api_client.oauth_token"
)

// Config is the immutable set of options a Client is built from.
type Config struct {
	ClientID     string // Required: client id provided by ma-residence
	ClientSecret string // Required: client secret provided by ma-residence
	Username     string // Required: API user
	Password     string // Required: API user password

	Endpoint string // Required: API base URL, e.g. https://www.ma-residence.fr
	TokenURL string // Required: OAuth2 token endpoint

	// TokenStoreKey scopes persistent token stores to one credential set
	// (default: ProductionTokenStoreKey).
	TokenStoreKey string

	CacheTTL     time.Duration // Optional: response cache TTL (default: 300s)
	ExpiryMargin time.Duration // Optional: refresh this long before expiry (default: 0)
	Vendor       string        // Optional: Accept header vendor (default: ma-residence)
}

// Production returns a Config for the production environment.
func Production(clientID, clientSecret, username, password string) Config {
	return Config{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Username:      username,
		Password:      password,
		Endpoint:      ProductionEndpoint,
		TokenURL:      ProductionTokenURL,
		TokenStoreKey: ProductionTokenStoreKey,
	}
}

// Sandbox returns a Config for the pre-production environment. It uses its own
// token store key so sandbox tokens never overwrite production ones.
func Sandbox(clientID, clientSecret, username, password string) Config {
	return Config{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Username:      username,
		Password:      password,
		Endpoint:      SandboxEndpoint,
		TokenURL:      SandboxTokenURL,
		TokenStoreKey: SandboxTokenStoreKey,
		ExpiryMargin:  SandboxExpiryMargin,
	}
}

// Validate returns a *ConfigError naming the first missing mandatory option.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"username", c.Username},
		{"password", c.Password},
		{"endpoint", c.Endpoint},
		{"token_url", c.TokenURL},
	}

	for _, opt := range required {
		if strings.TrimSpace(opt.value) == "" {
			return &ConfigError{Option: opt.name}
		}
	}
	return nil
}

// withDefaults fills the optional fields.
func (c Config) withDefaults() Config {
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	if c.TokenStoreKey == "" {
		c.TokenStoreKey = ProductionTokenStoreKey
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.ExpiryMargin < 0 {
		c.ExpiryMargin = 0
	}
	if c.Vendor == "" {
		c.Vendor = DefaultVendor
	}
	return c
}
