package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// TokenOptions holds the credentials exchanged for an access token.
type TokenOptions struct {
	*RootOptions
	Email    string
	Password string
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign in and print an access token",
		Long: `Sign in and print an access token.

The token can be passed to the users commands with --token until it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, func(app *App) error {
				if err := app.signIn(ctx, opts.Email, opts.Password); err != nil {
					return err
				}
				session := app.sessions.Snapshot().Session
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "token:   %s\n", session.AccessToken)
				fmt.Fprintf(out, "expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
