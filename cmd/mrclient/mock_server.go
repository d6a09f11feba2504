package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/maresidence/internal/app"
	"github.com/aussiebroadwan/maresidence/internal/mockapi"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

func newMockServerCommand() *cobra.Command {
	var (
		addr     string
		tokenTTL time.Duration
		seed     bool
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local fake of the ma-residence API",
		Long: `Serve a fake provider with the token endpoint and the resource API, accepting
the credentials from MR_CLIENT_ID, MR_CLIENT_SECRET, MR_USERNAME and
MR_PASSWORD (each defaults to "demo"). Point a client at it with
MR_ENV=custom MR_ENDPOINT=http://<addr> MR_TOKEN_URL=http://<addr>/oauth/v2/apitoken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.LoadConfig()
			logger := slogx.New(slogx.Config{
				Service: "mrclient-mock",
				Version: app.BuildVersion,
				Env:     cfg.Env,
				Level:   cfg.LogLevel,
				Format:  cfg.LogFormat,
			})

			provider, err := mockapi.New(mockapi.Config{
				ClientID:     orDemo(cfg.ClientID),
				ClientSecret: orDemo(cfg.ClientSecret),
				Username:     orDemo(cfg.Username),
				Password:     orDemo(cfg.Password),
				TokenTTL:     tokenTTL,
				Logger:       logger,
			})
			if err != nil {
				return err
			}
			if seed {
				provider.SeedDemo()
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           provider,
				ReadHeaderTimeout: 3 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- server.ListenAndServe()
			}()
			logger.Info("mock provider listening", "addr", addr, "token_path", mockapi.TokenPath)

			select {
			case err := <-serverErrors:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
				logger.Info("shutting down mock provider")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				_ = server.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", mockapi.DefaultTokenTTL, "lifetime of issued access tokens")
	cmd.Flags().BoolVar(&seed, "seed", true, "seed demo data")

	return cmd
}

func orDemo(s string) string {
	if s == "" {
		return "demo"
	}
	return s
}
