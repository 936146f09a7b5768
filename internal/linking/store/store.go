package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	tagstore "github.com/MrJamesThe3rd/lexledger/internal/tag/store"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const table = "expense_tags"

type Store struct {
	rls *rls.Enforcer
}

func New(db *sql.DB) *Store {
	return &Store{rls: rls.New(db)}
}

func liveExpense(ctx context.Context, tx *sql.Tx, caller tenant.Caller, expenseID uuid.UUID) error {
	var live bool

	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL)`,
		expenseID, caller.TenantID,
	).Scan(&live)
	if err != nil {
		return fmt.Errorf("checking expense: %w", err)
	}

	if !live {
		return database.ErrNotFound
	}

	return nil
}

func (s *Store) AttachTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	created := 0

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		if err := liveExpense(ctx, tx, caller, expenseID); err != nil {
			return err
		}

		var err error

		created, err = attach(ctx, tx, caller, expenseID, tagIDs)

		return err
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}

// DetachTags only removes links to tags the caller can see, so another
// user's personal tag keeps its link and its count.
func (s *Store) DetachTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	removed := 0

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		removed, err = detach(ctx, tx, caller, expenseID, tagIDs)

		return err
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func (s *Store) ReplaceTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, add, remove []uuid.UUID) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		if err := liveExpense(ctx, tx, caller, expenseID); err != nil {
			return err
		}

		if len(remove) > 0 {
			if _, err := detach(ctx, tx, caller, expenseID, remove); err != nil {
				return err
			}
		}

		if len(add) > 0 {
			if _, err := attach(ctx, tx, caller, expenseID, add); err != nil {
				return err
			}
		}

		return nil
	})
}

func attach(ctx context.Context, tx *sql.Tx, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	visibleTag := `
		SELECT EXISTS (
			SELECT 1 FROM tags t
			WHERE t.id = $3 AND t.tenant_id = $1 AND (t.scope = 'TENANT' OR t.owner_id = $2)
			  AND t.deleted_at IS NULL
		)
	`

	insertLink := `
		INSERT INTO expense_tags (expense_id, tag_id, tenant_id, created_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (expense_id, tag_id) DO NOTHING
		RETURNING tag_id
	`

	created := 0

	for _, tagID := range tagIDs {
		var ok bool
		if err := tx.QueryRowContext(ctx, visibleTag, caller.TenantID, caller.UserID, tagID).Scan(&ok); err != nil {
			return 0, fmt.Errorf("checking tag: %w", err)
		}

		if !ok {
			return 0, database.ErrNotFound
		}

		var linked uuid.UUID

		err := tx.QueryRowContext(ctx, insertLink, expenseID, tagID, caller.TenantID, caller.UserID).Scan(&linked)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}

		if err != nil {
			return 0, fmt.Errorf("linking tag: %w", database.MapError(err, table))
		}

		if err := tagstore.Increment(ctx, tx, caller.TenantID, tagID); err != nil {
			return 0, err
		}

		created++
	}

	return created, nil
}

func detach(ctx context.Context, tx *sql.Tx, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	query := `
		DELETE FROM expense_tags et
		USING tags t
		WHERE et.tenant_id = $1 AND et.expense_id = $3 AND et.tag_id = ANY($4::uuid[])
		  AND t.id = et.tag_id AND t.tenant_id = et.tenant_id
		  AND (t.scope = 'TENANT' OR t.owner_id = $2)
		RETURNING et.tag_id
	`

	ids := make([]string, len(tagIDs))
	for i, id := range tagIDs {
		ids[i] = id.String()
	}

	rows, err := tx.QueryContext(ctx, query, caller.TenantID, caller.UserID, expenseID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("unlinking tags: %w", database.MapError(err, table))
	}

	var detached []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning tag id: %w", err)
		}

		detached = append(detached, id)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating unlinked tags: %w", err)
	}

	for _, id := range detached {
		if err := tagstore.Decrement(ctx, tx, caller.TenantID, id); err != nil {
			return 0, err
		}
	}

	return len(detached), nil
}

func (s *Store) TagsForExpense(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*tag.Tag, error) {
	query := `
		SELECT t.id, t.tenant_id, t.name, t.normalized_name, t.color, t.scope, t.owner_id,
		       t.usage_count, t.last_used_at
		FROM expense_tags et
		JOIN tags t ON t.id = et.tag_id AND t.tenant_id = et.tenant_id
		WHERE et.tenant_id = $1 AND et.expense_id = $3
		  AND (t.scope = 'TENANT' OR t.owner_id = $2)
		  AND t.deleted_at IS NULL
		ORDER BY t.normalized_name ASC
	`

	var tags []*tag.Tag

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, caller.TenantID, caller.UserID, expenseID)
		if err != nil {
			return fmt.Errorf("listing expense tags: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var t tag.Tag

			var scope string

			if err := rows.Scan(
				&t.ID, &t.TenantID, &t.Name, &t.NormalizedName, &t.Color, &scope, &t.OwnerID,
				&t.UsageCount, &t.LastUsedAt,
			); err != nil {
				return fmt.Errorf("scanning tag: %w", err)
			}

			t.Scope = tag.Scope(scope)
			tags = append(tags, &t)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return tags, nil
}
