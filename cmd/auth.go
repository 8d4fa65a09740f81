package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aluizdacosta/calendar-export/internal/google"
)

func newAuthCmd() *cobra.Command {
	var auth authFlags

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the interactive OAuth consent flow and persist the token",
		Long: `Print a consent URL to open in a browser, then read the authorization
code from stdin and exchange it for a token. The token is persisted to the
token file and refreshed automatically on subsequent runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			conf, err := auth.oauthConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Open the following link in your browser, then paste the authorization code:\n\n%s\n\nCode: ", google.AuthURL(conf))

			var authCode string
			if _, err := fmt.Scan(&authCode); err != nil {
				return fmt.Errorf("unable to read authorization code: %w", err)
			}

			cred, err := google.ExchangeCode(ctx, conf, authCode)
			if err != nil {
				return err
			}

			store := google.NewFileTokenStore(auth.tokenFile, conf, slog.Default())
			if err := store.Save(ctx, cred); err != nil {
				return fmt.Errorf("failed to persist token: %w", err)
			}

			fmt.Printf("Token saved to %s\n", auth.tokenFile)
			return nil
		},
	}

	auth.register(cmd)
	return cmd
}
