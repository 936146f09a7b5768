package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const table = "attachments"

type Store struct {
	rls *rls.Enforcer
}

func New(db *sql.DB) *Store {
	return &Store{rls: rls.New(db)}
}

// row mirrors the attachments table for sqlx struct scanning.
type row struct {
	ID            uuid.UUID  `db:"id"`
	TenantID      uuid.UUID  `db:"tenant_id"`
	FileName      string     `db:"file_name"`
	OriginalName  string     `db:"original_name"`
	FileSize      int64      `db:"file_size"`
	MimeType      string     `db:"mime_type"`
	StoragePath   string     `db:"storage_path"`
	Status        string     `db:"status"`
	UploadedAt    time.Time  `db:"uploaded_at"`
	UploadedBy    uuid.UUID  `db:"uploaded_by"`
	ExpiresAt     *time.Time `db:"expires_at"`
	LinkedAt      *time.Time `db:"linked_at"`
	ClaimedAt     *time.Time `db:"claimed_at"`
	FailureReason string     `db:"failure_reason"`
	DeletedAt     *time.Time `db:"deleted_at"`
	DeletedBy     *uuid.UUID `db:"deleted_by"`
}

func (r *row) toAttachment() *attachment.Attachment {
	return &attachment.Attachment{
		ID:            r.ID,
		TenantID:      r.TenantID,
		FileName:      r.FileName,
		OriginalName:  r.OriginalName,
		FileSize:      r.FileSize,
		MimeType:      r.MimeType,
		StoragePath:   r.StoragePath,
		Status:        attachment.Status(r.Status),
		UploadedAt:    r.UploadedAt,
		UploadedBy:    r.UploadedBy,
		ExpiresAt:     r.ExpiresAt,
		LinkedAt:      r.LinkedAt,
		ClaimedAt:     r.ClaimedAt,
		FailureReason: r.FailureReason,
		DeletedAt:     r.DeletedAt,
		DeletedBy:     r.DeletedBy,
	}
}

const attachmentColumns = `
	id, tenant_id, file_name, original_name, file_size, mime_type, storage_path, status,
	uploaded_at, uploaded_by, expires_at, linked_at, claimed_at, failure_reason,
	deleted_at, deleted_by
`

const selectAttachmentColumns = `
	a.id, a.tenant_id, a.file_name, a.original_name, a.file_size, a.mime_type, a.storage_path, a.status,
	a.uploaded_at, a.uploaded_by, a.expires_at, a.linked_at, a.claimed_at, a.failure_reason,
	a.deleted_at, a.deleted_by
`

// visible limits rows to the caller's tenant and hides other users'
// temporary uploads. $1 is the tenant id and $2 the user id.
const visible = `a.tenant_id = $1 AND (a.status <> 'TEMPORARY' OR a.uploaded_by = $2)`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryAttachments(ctx context.Context, q querier, query string, args ...any) ([]*attachment.Attachment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scanned []row
	if err := sqlx.StructScan(rows, &scanned); err != nil {
		return nil, fmt.Errorf("scanning attachments: %w", err)
	}

	out := make([]*attachment.Attachment, len(scanned))
	for i := range scanned {
		out[i] = scanned[i].toAttachment()
	}

	return out, nil
}

func queryAttachment(ctx context.Context, q querier, query string, args ...any) (*attachment.Attachment, error) {
	found, err := queryAttachments(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, database.ErrNotFound
	}

	return found[0], nil
}

// lock reads the attachment with a row lock, deleted rows included.
func lock(ctx context.Context, tx *sql.Tx, caller tenant.Caller, id uuid.UUID) (*attachment.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + `
		FROM attachments a
		WHERE ` + visible + ` AND a.id = $3
		FOR UPDATE`

	a, err := queryAttachment(ctx, tx, query, caller.TenantID, caller.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("locking attachment: %w", database.MapError(err, table))
	}

	return a, nil
}

func (s *Store) Create(ctx context.Context, caller tenant.Caller, a *attachment.Attachment) error {
	if err := caller.Owns(a.TenantID); err != nil {
		return err
	}

	query := `
		INSERT INTO attachments (tenant_id, file_name, original_name, file_size, mime_type, storage_path,
		                         status, uploaded_at, uploaded_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		a.TenantID = caller.TenantID
		a.UploadedBy = caller.UserID

		err := tx.QueryRowContext(ctx, query,
			a.TenantID,
			a.FileName,
			a.OriginalName,
			a.FileSize,
			a.MimeType,
			a.StoragePath,
			a.Status,
			a.UploadedAt,
			a.UploadedBy,
			a.ExpiresAt,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("creating attachment: %w", database.MapError(err, table))
		}

		return nil
	})
}

func (s *Store) FindByID(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*attachment.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + `
		FROM attachments a
		WHERE ` + visible + ` AND a.id = $3 AND a.status <> 'DELETED'`

	var a *attachment.Attachment

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		a, err = queryAttachment(ctx, tx, query, caller.TenantID, caller.UserID, id)
		if err != nil {
			return fmt.Errorf("getting attachment: %w", database.MapError(err, table))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Store) ListByExpense(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*attachment.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + `
		FROM attachments a
		JOIN expense_attachments ea ON ea.attachment_id = a.id AND ea.tenant_id = a.tenant_id
		JOIN expenses e ON e.id = ea.expense_id AND e.tenant_id = ea.tenant_id
		WHERE ` + visible + ` AND ea.expense_id = $3 AND e.deleted_at IS NULL AND a.status <> 'DELETED'
		ORDER BY ea.display_order ASC, ea.linked_at ASC, a.id ASC`

	var found []*attachment.Attachment

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		found, err = queryAttachments(ctx, tx, query, caller.TenantID, caller.UserID, expenseID)
		if err != nil {
			return fmt.Errorf("listing attachments: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

func (s *Store) LinkToExpense(ctx context.Context, caller tenant.Caller, link *attachment.Link) (*attachment.Attachment, error) {
	if err := caller.Owns(link.TenantID); err != nil {
		return nil, err
	}

	var a *attachment.Attachment

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		a, err = lock(ctx, tx, caller, link.AttachmentID)
		if err != nil {
			return err
		}

		if err := a.Linkable(link.LinkedAt); err != nil {
			return err
		}

		var live bool

		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL)`,
			link.ExpenseID, caller.TenantID,
		).Scan(&live)
		if err != nil {
			return fmt.Errorf("checking expense: %w", err)
		}

		if !live {
			return database.ErrNotFound
		}

		insertLink := `
			INSERT INTO expense_attachments (expense_id, attachment_id, tenant_id, linked_at, linked_by, display_order, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (expense_id, attachment_id) DO NOTHING
		`

		_, err = tx.ExecContext(ctx, insertLink,
			link.ExpenseID,
			link.AttachmentID,
			caller.TenantID,
			link.LinkedAt,
			caller.UserID,
			link.DisplayOrder,
			link.Description,
		)
		if err != nil {
			return fmt.Errorf("inserting link: %w", database.MapError(err, "expense_attachments"))
		}

		if a.Status != attachment.StatusTemporary {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE attachments
			SET status = 'LINKED', expires_at = NULL, linked_at = $3
			WHERE id = $1 AND tenant_id = $2`,
			a.ID, caller.TenantID, link.LinkedAt,
		)
		if err != nil {
			return fmt.Errorf("marking attachment linked: %w", database.MapError(err, table))
		}

		linkedAt := link.LinkedAt
		a.Status = attachment.StatusLinked
		a.ExpiresAt = nil
		a.LinkedAt = &linkedAt

		return nil
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Store) Unlink(ctx context.Context, caller tenant.Caller, expenseID, attachmentID uuid.UUID, revertExpiry *time.Time) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		a, err := lock(ctx, tx, caller, attachmentID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM expense_attachments WHERE expense_id = $1 AND attachment_id = $2 AND tenant_id = $3`,
			expenseID, attachmentID, caller.TenantID,
		)
		if err != nil {
			return fmt.Errorf("deleting link: %w", database.MapError(err, "expense_attachments"))
		}

		if n, _ := res.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}

		if a.Status != attachment.StatusLinked {
			return nil
		}

		var remaining int

		err = tx.QueryRowContext(ctx,
			`SELECT count(*) FROM expense_attachments WHERE attachment_id = $1 AND tenant_id = $2`,
			attachmentID, caller.TenantID,
		).Scan(&remaining)
		if err != nil {
			return fmt.Errorf("counting links: %w", err)
		}

		if remaining > 0 {
			return nil
		}

		if revertExpiry == nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE attachments
				SET status = 'DELETED', deleted_at = now(), deleted_by = $3
				WHERE id = $1 AND tenant_id = $2`,
				attachmentID, caller.TenantID, caller.UserID,
			)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE attachments
				SET status = 'TEMPORARY', expires_at = $3, linked_at = NULL, claimed_at = NULL
				WHERE id = $1 AND tenant_id = $2`,
				attachmentID, caller.TenantID, *revertExpiry,
			)
		}
		if err != nil {
			return fmt.Errorf("reverting attachment: %w", database.MapError(err, table))
		}

		return nil
	})
}

// Transition handles the moves to DELETED and FAILED. Moves to LINKED and
// back to TEMPORARY need link bookkeeping and only happen through
// LinkToExpense and Unlink.
func (s *Store) Transition(ctx context.Context, caller tenant.Caller, id uuid.UUID, to attachment.Status, reason string) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		a, err := lock(ctx, tx, caller, id)
		if err != nil {
			return err
		}

		if a.Status == to {
			return nil
		}

		if err := attachment.CheckTransition(a.Status, to); err != nil {
			return err
		}

		var query string

		var args []any

		switch to {
		case attachment.StatusDeleted:
			query = `UPDATE attachments SET status = 'DELETED', deleted_at = now(), deleted_by = $3
				WHERE id = $1 AND tenant_id = $2`
			args = []any{id, caller.TenantID, caller.UserID}
		case attachment.StatusFailed:
			query = `UPDATE attachments SET status = 'FAILED', failure_reason = $3
				WHERE id = $1 AND tenant_id = $2`
			args = []any{id, caller.TenantID, reason}
		default:
			return &attachment.TransitionError{From: a.Status, To: to}
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating attachment status: %w", database.MapError(err, table))
		}

		return nil
	})
}

func (s *Store) HardDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM attachments a WHERE `+visible+` AND a.id = $3`,
			caller.TenantID, caller.UserID, id,
		)
		if err != nil {
			return fmt.Errorf("purging attachment: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}

		return nil
	})
}

func (s *Store) FindExpired(ctx context.Context, now time.Time, limit int) ([]*attachment.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + `
		FROM attachments a
		WHERE a.status = 'TEMPORARY' AND a.expires_at < $1
		ORDER BY a.expires_at ASC
		LIMIT $2`

	var found []*attachment.Attachment

	err := s.rls.InSystemTx(ctx, func(tx *sql.Tx) error {
		var err error

		found, err = queryAttachments(ctx, tx, query, now, limit)
		if err != nil {
			return fmt.Errorf("finding expired attachments: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// ClaimExpired stamps claimed_at on up to limit expired uploads in a single
// statement. SKIP LOCKED keeps concurrent runs on disjoint rows.
func (s *Store) ClaimExpired(ctx context.Context, now, staleBefore time.Time, limit int) ([]*attachment.Attachment, error) {
	query := `
		UPDATE attachments
		SET claimed_at = $1
		WHERE id IN (
			SELECT id FROM attachments
			WHERE status = 'TEMPORARY' AND expires_at < $1
			  AND (claimed_at IS NULL OR claimed_at < $2)
			ORDER BY expires_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + attachmentColumns

	var claimed []*attachment.Attachment

	err := s.rls.InSystemTx(ctx, func(tx *sql.Tx) error {
		var err error

		claimed, err = queryAttachments(ctx, tx, query, now, staleBefore, limit)
		if err != nil {
			return fmt.Errorf("claiming expired attachments: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (s *Store) ExpireClaimed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE attachments
		SET status = 'DELETED', deleted_at = now()
		WHERE id = $1 AND status = 'TEMPORARY' AND claimed_at IS NOT NULL
	`

	return s.rls.InSystemTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("expiring attachment: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}

		return nil
	})
}

func (s *Store) FindOrphaned(ctx context.Context, caller tenant.Caller, before time.Time) ([]*attachment.Attachment, error) {
	query := `SELECT ` + selectAttachmentColumns + `
		FROM attachments a
		WHERE ` + visible + ` AND a.status <> 'DELETED' AND a.uploaded_at < $3
		  AND NOT EXISTS (
			SELECT 1 FROM expense_attachments ea
			WHERE ea.attachment_id = a.id AND ea.tenant_id = a.tenant_id
		  )
		ORDER BY a.uploaded_at ASC`

	var found []*attachment.Attachment

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		found, err = queryAttachments(ctx, tx, query, caller.TenantID, caller.UserID, before)
		if err != nil {
			return fmt.Errorf("finding orphaned attachments: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}
