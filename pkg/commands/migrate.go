package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.App.Migrations().Run(cmd.Context())
		},
	})

	var confirmed bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert every applied migration, dropping all newsletter data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to drop the schema without --yes")
			}
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.App.Migrations().Rollback(cmd.Context())
		},
	}
	down.Flags().BoolVar(&confirmed, "yes", false, "confirm that all data may be dropped")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := root.runtime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			statuses, err := rt.App.Migrations().Status(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSOURCE\tAPPLIED AT")
			for _, s := range statuses {
				appliedAt := "pending"
				if s.Applied {
					appliedAt = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Source, appliedAt)
			}
			return w.Flush()
		},
	})

	return cmd
}
