package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
	"github.com/aussiebroadwan/maresidence/pkg/store/redis"
	"github.com/aussiebroadwan/maresidence/pkg/store/sqlite"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds a configured API client and the storage backing it.
type Application struct {
	cfg    Config
	logger *slog.Logger
	client *mrsdk.Client

	closers []func() error
}

// New builds the logger, opens the configured storage backend and creates the
// API client on top of it.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "mrclient",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	sdkCfg, err := cfg.SDKConfig()
	if err != nil {
		return nil, err
	}

	opts := []mrsdk.Option{
		mrsdk.WithLogger(app.logger),
		mrsdk.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}

	storageOpts, err := app.initStorage(ctx, sdkCfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, storageOpts...)

	client, err := mrsdk.New(sdkCfg, opts...)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.client = client

	return app, nil
}

// initStorage opens the token and response cache backend.
func (app *Application) initStorage(ctx context.Context, sdkCfg mrsdk.Config) ([]mrsdk.Option, error) {
	switch app.cfg.Storage {
	case StorageMemory, "":
		return nil, nil

	case StorageRedis:
		st, err := redis.NewStore(ctx, redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, st.Close)
		app.logger.Debug("using redis storage", "addr", app.cfg.RedisAddr, "db", app.cfg.RedisDB)

		return []mrsdk.Option{
			mrsdk.WithTokenStore(st.Tokens(sdkCfg.TokenStoreKey)),
			mrsdk.WithResponseCache(st.Cache()),
		}, nil

	case StorageSQLite:
		st, err := sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.SQLiteFile))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.closers = append(app.closers, st.Close)

		if err := st.ApplyMigrations(); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Debug("using sqlite storage", "file", app.cfg.SQLiteFile)

		// Expired rows are never served. Drop them on startup.
		cache := st.Cache()
		if n, err := cache.DeleteExpired(ctx); err != nil {
			app.logger.Warn("failed to prune response cache", "error", err)
		} else if n > 0 {
			app.logger.Debug("pruned response cache", "deleted", n)
		}

		return []mrsdk.Option{
			mrsdk.WithTokenStore(st.Tokens(sdkCfg.TokenStoreKey)),
			mrsdk.WithResponseCache(cache),
		}, nil

	default:
		return nil, fmt.Errorf("unknown MR_STORAGE %q (want memory, redis or sqlite)", app.cfg.Storage)
	}
}

func (app *Application) Client() *mrsdk.Client { return app.client }

func (app *Application) Logger() *slog.Logger { return app.logger }

// Close releases the storage backend.
func (app *Application) Close() error {
	var firstErr error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	app.closers = nil
	return firstErr
}
