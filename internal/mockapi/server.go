// Package mockapi is an in-process stand-in for the ma-residence provider: a
// password-grant token endpoint issuing short-lived JWTs and an in-memory
// resource API behind it. Tests and the mock-server command run against it.
package mockapi

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/cryptox"
	"github.com/aussiebroadwan/maresidence/pkg/idx"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

// TokenPath is where the token endpoint is mounted.
const TokenPath = "/oauth/v2/apitoken"

// DefaultTokenTTL matches the lifetime the hosted provider grants.
const DefaultTokenTTL = time.Hour

// Config holds the credentials the provider accepts and how it signs tokens.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	TokenTTL time.Duration // default: DefaultTokenTTL
	Issuer   string        // default: "ma-residence"

	// Secret signs access tokens (HS256). A random one is generated when
	// empty.
	Secret []byte

	Now    func() time.Time // default: time.Now
	Logger *slog.Logger     // default: slog.Default()
}

// Server is the fake provider. It is safe for concurrent use.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	handler http.Handler
	ids     *idx.Generator

	mu     sync.RWMutex
	items  map[string]map[string]Object // resource -> id -> entity
	order  map[string][]string          // resource -> ids in insertion order
	shares map[string][]Object          // advert id -> shares

	tokenCalls    atomic.Int64
	resourceCalls atomic.Int64
}

// New builds a Server with no seeded data.
func New(cfg Config) (*Server, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "ma-residence"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Secret) == 0 {
		secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}
		cfg.Secret = []byte(secret)
	}

	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		ids:    idx.NewGenerator(cfg.Now),
		items:  make(map[string]map[string]Object),
		order:  make(map[string][]string),
		shares: make(map[string][]Object),
	}
	s.routes()
	s.handler = slogx.HTTPMiddleware(cfg.Logger)(s.mux)

	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET "+TokenPath, s.handleToken)
	s.mux.HandleFunc("GET /api/{resource}", s.authorized(s.handleList))
	s.mux.HandleFunc("GET /api/{resource}/{id}", s.authorized(s.handleGet))
	s.mux.HandleFunc("POST /api/{resource}", s.authorized(s.handleCreate))
	s.mux.HandleFunc("GET /api/adverts/{id}/shares", s.authorized(s.handleListShares))
	s.mux.HandleFunc("POST /api/adverts/{id}/shares", s.authorized(s.handleCreateShare))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// TokenCalls returns how many token requests were received, failed ones
// included.
func (s *Server) TokenCalls() int64 { return s.tokenCalls.Load() }

// ResourceCalls returns how many resource requests reached a handler.
func (s *Server) ResourceCalls() int64 { return s.resourceCalls.Load() }
