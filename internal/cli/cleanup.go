package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	attachmentStore "github.com/MrJamesThe3rd/lexledger/internal/attachment/store"
)

func newCleanupCmd(s *state) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Expire temporary uploads that were never linked",
		Long: `Claim a batch of expired TEMPORARY attachments and move them to DELETED.
Several cleanup runs may overlap; each attachment is claimed by one run only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := s.open()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := attachment.NewService(attachmentStore.New(db), attachment.Config{
				TempTTL:         s.cfg.Attachments.TempTTL,
				OrphanGrace:     s.cfg.Attachments.OrphanGrace,
				ClaimStaleAfter: s.cfg.Attachments.ClaimStaleAfter,
				ClaimBatch:      s.cfg.Attachments.ClaimBatch,
			})

			_, err = cleanup(cmd.Context(), svc, dryRun, cmd.OutOrStdout())

			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expired uploads without claiming them")

	return cmd
}

// cleanup expires one claimed batch and returns how many attachments it
// handled. A failure on one attachment is logged and the rest continue;
// the claim goes stale and a later run retries it.
func cleanup(ctx context.Context, svc *attachment.Service, dryRun bool, out io.Writer) (int, error) {
	if dryRun {
		expired, err := svc.FindExpired(ctx)
		if err != nil {
			return 0, fmt.Errorf("finding expired attachments: %w", err)
		}

		for _, a := range expired {
			fmt.Fprintf(out, "%s\t%s\t%s\n", a.ID, a.TenantID, a.OriginalName)
		}

		return len(expired), nil
	}

	claimed, err := svc.ClaimExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("claiming expired attachments: %w", err)
	}

	done := 0

	for _, a := range claimed {
		if err := svc.ExpireClaimed(ctx, a.ID); err != nil {
			slog.Error("failed to expire attachment", "attachment", a.ID, "tenant", a.TenantID, "error", err)
			continue
		}

		done++
	}

	fmt.Fprintf(out, "expired %d of %d claimed attachments\n", done, len(claimed))

	return done, nil
}
