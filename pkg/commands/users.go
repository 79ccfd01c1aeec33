package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/newsletter/modules/newsletter/services"
)

const passwordEnv = "NEWSLETTER_USER_PASSWORD"

func newUsersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the users allowed to publish",
	}

	var username, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a publisher account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or " + passwordEnv + ") are required")
			}
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			users := rt.App.Service(services.UserService{}).(*services.UserService)
			u, err := users.Create(rt.Context(cmd.Context()), username, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Username(), u.ID())
			return err
		},
	}
	create.Flags().StringVar(&username, "username", "", "login name")
	create.Flags().StringVar(&password, "password", "", "password; prefer "+passwordEnv+" to keep it out of shell history")
	cmd.AddCommand(create)

	return cmd
}
