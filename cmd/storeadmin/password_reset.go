package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewPasswordResetCommand creates the password-reset command group.
func NewPasswordResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password-reset",
		Short: "Reset the password of an account",
		Long: `Reset the password of an account.

"request" issues a single use reset token that must reach the account owner
out of band. "finalize" exchanges that token for a new password and revokes
every refresh token of the account.`,
	}

	cmd.AddCommand(newPasswordResetRequestCommand(rootOpts))
	cmd.AddCommand(newPasswordResetFinalizeCommand(rootOpts))

	return cmd
}

func newPasswordResetRequestCommand(rootOpts *RootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Issue a password reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, func(app *App) error {
				ticket, err := app.backend.RequestPasswordReset(ctx, email)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if ticket == nil {
					fmt.Fprintln(out, "no reset issued")
					return nil
				}
				fmt.Fprintf(out, "email:   %s\n", ticket.Email)
				fmt.Fprintf(out, "token:   %s\n", ticket.Token)
				fmt.Fprintf(out, "expires: %s\n", ticket.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newPasswordResetFinalizeCommand(rootOpts *RootOptions) *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, func(app *App) error {
				if err := app.backend.ResetPassword(ctx, token, password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "password changed")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "reset token")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
