package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/maresidence/internal/app"
)

func newAuthCommand() *cobra.Command {
	var showToken bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain (or reuse) an access token",
		Long: `Authenticate with the password grant and store the token in the configured
backend. A still valid stored token is reused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, func(a *app.Application) error {
				ctx := cmd.Context()
				client := a.Client()

				if err := client.Authenticate(ctx); err != nil {
					return err
				}

				tok, err := client.TokenStore().Token(ctx)
				if err != nil {
					return err
				}
				if tok == nil {
					return fmt.Errorf("token store returned no token after authentication")
				}

				out := map[string]any{
					"client_id":  client.ClientID(),
					"token_type": tok.TokenType,
					"expires_at": tok.ExpiresAt().UTC().Format(time.RFC3339),
				}
				if tok.Scope != "" {
					out["scope"] = tok.Scope
				}
				if showToken {
					out["access_token"] = tok.AccessToken
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().BoolVar(&showToken, "show-token", false, "print the access token")

	return cmd
}
