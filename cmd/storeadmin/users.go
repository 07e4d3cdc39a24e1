package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	auth "github.com/goliatone/go-store-auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// UsersOptions holds the acting account credentials.
type UsersOptions struct {
	*RootOptions
	Email    string
	Password string
	Token    string
}

// NewUsersCommand creates the users command group.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UsersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the users of your store",
		Long: `Manage the users of your store.

Every subcommand signs in with --as-email and --as-password, or presents an
access token issued by "storeadmin token" with --token, and acts on the store
that account owns.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Email, "as-email", "", "email of the acting store owner")
	cmd.PersistentFlags().StringVar(&opts.Password, "as-password", "", "password of the acting store owner")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "access token of the acting store owner")

	cmd.AddCommand(newUsersListCommand(opts))
	cmd.AddCommand(newUsersCreateCommand(opts))
	cmd.AddCommand(newUsersDeleteCommand(opts))

	return cmd
}

func (o *UsersOptions) validate() error {
	if o.Token != "" {
		if o.Email != "" || o.Password != "" {
			return errors.New("use either --token or --as-email/--as-password")
		}
		return nil
	}
	if o.Email == "" || o.Password == "" {
		return errors.New("--as-email and --as-password are required without --token")
	}
	return nil
}

func withProvisioning(cmd *cobra.Command, opts *UsersOptions, fn func(context.Context, *auth.UserProvisioningSaga) error) error {
	if err := opts.validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	return withApp(ctx, opts.RootOptions, func(app *App) error {
		var acting auth.ActingIdentityProvider = app.sessions
		if opts.Token != "" {
			identity, err := app.backend.SessionFromToken(opts.Token)
			if err != nil {
				return err
			}
			ctx = auth.WithIdentityContext(ctx, identity)
			acting = auth.NewContextActingIdentity(app.config.GetLocale())
		} else if err := app.signIn(ctx, opts.Email, opts.Password); err != nil {
			return err
		}
		saga := auth.NewUserProvisioningSaga(acting, app.backend, app.repo, app.activities, app.sagaOptions()...)
		return fn(ctx, saga)
	})
}

func newUsersListCommand(opts *UsersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List store users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProvisioning(cmd, opts, func(ctx context.Context, saga *auth.UserProvisioningSaga) error {
				users, err := saga.ListUsers(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
				}
				return w.Flush()
			})
		},
	}
}

func newUsersCreateCommand(opts *UsersOptions) *cobra.Command {
	var (
		profile auth.UserProfile
		role    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a store user with a one-time password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.IsAssignableRole(role) {
				return fmt.Errorf("invalid role %q, expected admin or staff", role)
			}
			return withProvisioning(cmd, opts, func(ctx context.Context, saga *auth.UserProvisioningSaga) error {
				user, err := saga.CreateUser(ctx, profile, role)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "user:     %s (%s)\n", user.Membership.Email, user.Membership.ID)
				fmt.Fprintf(out, "password: %s\n", user.OneTimePassword)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&profile.Name, "name", "", "user name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", auth.RoleStaff, "user role (admin|staff)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUsersDeleteCommand(opts *UsersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Remove a store user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			return withProvisioning(cmd, opts, func(ctx context.Context, saga *auth.UserProvisioningSaga) error {
				if err := saga.DeleteUser(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s removed\n", id)
				return nil
			})
		},
	}
}
