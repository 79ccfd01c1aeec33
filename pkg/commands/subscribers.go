package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iota-uz/newsletter/modules/newsletter/services"
)

func newSubscribersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage newsletter subscriptions",
	}
	cmd.AddCommand(
		newSubscribersAddCmd(root),
		newSubscribersConfirmCmd(root),
		newSubscribersListCmd(root),
	)
	return cmd
}

func newSubscribersAddCmd(root *rootOptions) *cobra.Command {
	var email, name string
	var confirm bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a subscription pending confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := rt.Context(cmd.Context())
			subscribers := rt.App.Service(services.SubscriberService{}).(*services.SubscriberService)
			s, err := subscribers.Subscribe(ctx, email, name)
			if err != nil {
				return err
			}
			if confirm {
				if err := subscribers.Confirm(ctx, s.Email()); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", s.Email())
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "subscriber email")
	cmd.Flags().StringVar(&name, "name", "", "subscriber name")
	cmd.Flags().BoolVar(&confirm, "confirmed", false, "confirm the subscription right away")
	return cmd
}

func newSubscribersConfirmCmd(root *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a pending subscription so it receives future issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			subscribers := rt.App.Service(services.SubscriberService{}).(*services.SubscriberService)
			return subscribers.Confirm(rt.Context(cmd.Context()), email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "subscriber email")
	return cmd
}

func newSubscribersListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List confirmed subscribers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			subscribers := rt.App.Service(services.SubscriberService{}).(*services.SubscriberService)
			all, err := subscribers.ListConfirmed(rt.Context(cmd.Context()))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tNAME\tSUBSCRIBED AT")
			for _, s := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Email(), s.Name(), s.SubscribedAt().UTC().Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}
