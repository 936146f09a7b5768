package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	expenseStore "github.com/MrJamesThe3rd/lexledger/internal/expense/store"
	"github.com/MrJamesThe3rd/lexledger/internal/importer"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

func newImportCmd(s *state) *cobra.Command {
	var (
		tenantID string
		userID   string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a ledger CSV for one tenant",
		Long: `Parse a ledger CSV and create its rows as expenses of the tenant. When rows
look like existing expenses nothing is written and the conflicts are listed;
pass --force to import every row anyway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := parseCaller(tenantID, userID)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer f.Close()

			importSvc, err := importer.NewService(s.cfg.Import.ProfilesFile)
			if err != nil {
				return err
			}

			db, err := s.open()
			if err != nil {
				return err
			}
			defer db.Close()

			expenseSvc := expense.NewService(expenseStore.New(db))

			return importLedger(cmd.Context(), importSvc, expenseSvc, caller, f, force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&userID, "user", "", "id of the user recorded as creator (required)")
	cmd.Flags().BoolVar(&force, "force", false, "import rows even when they duplicate existing expenses")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func parseCaller(tenantID, userID string) (tenant.Caller, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return tenant.Caller{}, fmt.Errorf("invalid --tenant: %w", err)
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return tenant.Caller{}, fmt.Errorf("invalid --user: %w", err)
	}

	c := tenant.Caller{TenantID: tid, UserID: uid}

	return c, c.Validate()
}

var errConflicts = errors.New("ledger has rows matching existing expenses; rerun with --force to import them")

func importLedger(
	ctx context.Context,
	importSvc *importer.Service,
	expenseSvc *expense.Service,
	caller tenant.Caller,
	r io.Reader,
	force bool,
	out io.Writer,
) error {
	params, err := importSvc.Import(r)
	if err != nil {
		return err
	}

	if force {
		created, err := expenseSvc.CreateBatch(ctx, caller, params)
		if err != nil {
			return fmt.Errorf("importing: %w", err)
		}

		fmt.Fprintf(out, "imported %d expenses\n", len(created))

		return nil
	}

	result, err := expenseSvc.ImportBatch(ctx, caller, params)
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}

	if len(result.Conflicts) > 0 {
		for _, c := range result.Conflicts {
			fmt.Fprintf(out, "conflict\t%s\t%s\t%s\t%s\texisting %s\n",
				c.Incoming.Date.Format("2006-01-02"), c.Incoming.Amount, c.Incoming.Category,
				c.Incoming.Description, c.Existing.ID)
		}

		fmt.Fprintf(out, "%d new rows, %d conflicts\n", len(result.New), len(result.Conflicts))

		return errConflicts
	}

	fmt.Fprintf(out, "imported %d expenses\n", len(result.Imported))

	return nil
}
