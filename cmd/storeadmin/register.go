package main

import (
	"fmt"

	auth "github.com/goliatone/go-store-auth"
	"github.com/spf13/cobra"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	msg := auth.RegisterStoreMessage{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a store and its owner account",
		Long: `Register a store and its owner account.

Creates the owner identity, the store, the admin membership and the first
activity record. Any failure after the identity exists is rolled back.

Example:
  storeadmin register --store "Loja X" --owner Ana --email ana@x.ao \
    --password secret1 --province Luanda --type Padaria --phone 923456789 \
    --lat -8.83 --lng 13.23`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, rootOpts, func(app *App) error {
				saga := auth.NewRegistrationSaga(app.backend, app.repo, app.activities, app.sagaOptions()...)
				reg, err := saga.RegisterStore(ctx, msg)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "store:    %s (%s)\n", reg.Store.Name, reg.Store.ID)
				fmt.Fprintf(out, "owner:    %s (%s)\n", reg.Identity.Email, reg.Identity.ID)
				fmt.Fprintf(out, "admin id: %s\n", reg.Membership.ID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&msg.StoreName, "store", "", "store name")
	flags.StringVar(&msg.OwnerName, "owner", "", "owner display name")
	flags.StringVar(&msg.Email, "email", "", "owner email")
	flags.StringVar(&msg.Password, "password", "", "owner password")
	flags.StringVar(&msg.Province, "province", "", "province")
	flags.StringVar(&msg.StoreType, "type", "", "store type")
	flags.StringVar(&msg.Phone, "phone", "", "store phone")
	flags.StringVar(&msg.Description, "description", "", "store description")
	flags.Float64Var(&msg.Latitude, "lat", 0, "store latitude")
	flags.Float64Var(&msg.Longitude, "lng", 0, "store longitude")

	for _, name := range []string{"store", "owner", "email", "password", "province", "type", "phone"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
