package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
)

func newMigrateCmd(s *state) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply the embedded schema migrations in order. Run this with a role that
owns the tables; the application role is subject to row-level security.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				migrations, err := database.Migrations()
				if err != nil {
					return err
				}

				for _, m := range migrations {
					fmt.Fprintln(cmd.OutOrStdout(), m.Version)
				}

				return nil
			}

			db, err := s.open()
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("migrating: %w", err)
			}

			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}

			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", v)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations without connecting")

	return cmd
}
