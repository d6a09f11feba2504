package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("MR_CLIENT_ID", "1_abc")
	t.Setenv("MR_CLIENT_SECRET", "secret")
	t.Setenv("MR_USERNAME", "api@example.org")
	t.Setenv("MR_PASSWORD", "pass")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setCredentials(t)

	cfg := LoadConfig()
	require.Equal(t, EnvProduction, cfg.Provider)
	require.Equal(t, StorageMemory, cfg.Storage)
	require.Equal(t, mrsdk.DefaultCacheTTL, cfg.CacheTTL)
	require.Equal(t, mrsdk.DefaultTimeout, cfg.HTTPTimeout)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)

	sdkCfg, err := cfg.SDKConfig()
	require.NoError(t, err)
	require.Equal(t, mrsdk.ProductionEndpoint, sdkCfg.Endpoint)
	require.Equal(t, mrsdk.ProductionTokenURL, sdkCfg.TokenURL)
	require.Equal(t, mrsdk.ProductionTokenStoreKey, sdkCfg.TokenStoreKey)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("MR_ENV", "Sandbox")
	t.Setenv("MR_CACHE_TTL", "60")
	t.Setenv("MR_EXPIRY_MARGIN", "45s")
	t.Setenv("MR_TOKEN_STORE_KEY", "custom.key")
	t.Setenv("MR_REDIS_DB", "3")
	t.Setenv("MR_STORAGE", "REDIS")

	cfg := LoadConfig()
	require.Equal(t, 60*time.Second, cfg.CacheTTL)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, StorageRedis, cfg.Storage)

	sdkCfg, err := cfg.SDKConfig()
	require.NoError(t, err)
	require.Equal(t, mrsdk.SandboxEndpoint, sdkCfg.Endpoint)
	require.Equal(t, "custom.key", sdkCfg.TokenStoreKey)
	require.Equal(t, 45*time.Second, sdkCfg.ExpiryMargin)
	require.Equal(t, 60*time.Second, sdkCfg.CacheTTL)
}

func TestSDKConfig_Errors(t *testing.T) {
	setCredentials(t)

	t.Setenv("MR_ENV", "staging")
	_, err := LoadConfig().SDKConfig()
	require.ErrorContains(t, err, "unknown MR_ENV")

	t.Setenv("MR_ENV", EnvCustom)
	_, err = LoadConfig().SDKConfig()
	var cfgErr *mrsdk.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "endpoint", cfgErr.Option)

	t.Setenv("MR_ENDPOINT", "http://localhost:8080")
	t.Setenv("MR_TOKEN_URL", "http://localhost:8080/oauth/v2/apitoken")
	_, err = LoadConfig().SDKConfig()
	require.NoError(t, err)

	t.Setenv("MR_PASSWORD", "")
	_, err = LoadConfig().SDKConfig()
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "password", cfgErr.Option)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MR_USERNAME=from-file\nMR_CLIENT_ID=from-file\n"), 0o600))

	t.Setenv("MR_USERNAME", "from-env")
	t.Setenv("MR_CLIENT_ID", "")
	require.NoError(t, os.Unsetenv("MR_CLIENT_ID"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	require.Equal(t, "from-env", os.Getenv("MR_USERNAME"), "existing variables win")
	require.Equal(t, "from-file", os.Getenv("MR_CLIENT_ID"))
}

func TestNew_Storage(t *testing.T) {
	setCredentials(t)
	t.Setenv("LOG_LEVEL", "error")

	t.Run("memory", func(t *testing.T) {
		application, err := New(t.Context(), LoadConfig())
		require.NoError(t, err)
		defer application.Close()

		require.IsType(t, &mrsdk.MemoryStore{}, application.Client().TokenStore())
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Storage = StorageSQLite
		cfg.SQLiteFile = filepath.Join(t.TempDir(), "mr.db")

		application, err := New(t.Context(), cfg)
		require.NoError(t, err)
		defer application.Close()

		store := application.Client().TokenStore()
		require.NoError(t, store.SetToken(t.Context(), mrsdk.Token{AccessToken: "x", ExpiresIn: 10, CreatedAt: 1}))
		tok, err := store.Token(t.Context())
		require.NoError(t, err)
		require.Equal(t, "x", tok.AccessToken)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := LoadConfig()
		cfg.Storage = "etcd"

		_, err := New(t.Context(), cfg)
		require.ErrorContains(t, err, "unknown MR_STORAGE")
	})
}
