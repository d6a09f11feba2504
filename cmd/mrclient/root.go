package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/maresidence/internal/app"
	"github.com/aussiebroadwan/maresidence/pkg/idx"
	"github.com/aussiebroadwan/maresidence/pkg/slogx"
)

func newRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "mrclient",
		Short: "Command line client for the ma-residence API",
		Long: `mrclient talks to the ma-residence API with the OAuth2 password grant.

Credentials and storage are read from the environment (MR_CLIENT_ID,
MR_CLIENT_SECRET, MR_USERNAME, MR_PASSWORD, MR_ENV, MR_STORAGE, ...), optionally
loaded from a .env file first.`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.LoadDotEnv(envFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file to load environment variables from")

	rootCmd.AddCommand(
		newAuthCommand(),
		newGetCommand(),
		newCreateCommand(),
		newResourcesCommand(),
		newMockServerCommand(),
	)

	return rootCmd
}

// withApplication builds the application from the environment, runs fn and
// releases the storage backend. Every API call made by fn through
// cmd.Context() shares one request id.
func withApplication(cmd *cobra.Command, fn func(*app.Application) error) error {
	application, err := app.New(cmd.Context(), app.LoadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			application.Logger().Warn("failed to close storage", "error", err)
		}
	}()

	ctx := slogx.WithContext(cmd.Context(), application.Logger())
	cmd.SetContext(slogx.WithRequestID(ctx, idx.New().String()))

	return fn(application)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
