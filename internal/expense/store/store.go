package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const table = "expenses"

type Store struct {
	rls *rls.Enforcer
}

func New(db *sql.DB) *Store {
	return &Store{rls: rls.New(db)}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanExpense expects the column order of selectExpenseColumns.
func scanExpense(s scanner) (*expense.Expense, error) {
	var e expense.Expense

	var direction string

	if err := s.Scan(
		&e.ID, &e.TenantID, &direction, &e.Amount, &e.Date, &e.Category, &e.CaseID,
		&e.Description, &e.Memo,
		&e.CreatedAt, &e.CreatedBy, &e.UpdatedAt, &e.UpdatedBy,
		&e.DeletedAt, &e.DeletedBy, &e.RestoredAt, &e.RestoredBy,
	); err != nil {
		return nil, err
	}

	e.Direction = expense.Direction(direction)

	return &e, nil
}

const selectExpenseColumns = `
	e.id, e.tenant_id, e.direction, e.amount, e.date, e.category, e.case_id,
	e.description, e.memo,
	e.created_at, e.created_by, e.updated_at, e.updated_by,
	e.deleted_at, e.deleted_by, e.restored_at, e.restored_by
`

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const insertExpense = `
	INSERT INTO expenses (tenant_id, direction, amount, date, category, case_id, description, memo,
	                      created_by, updated_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	RETURNING id, created_at, created_by, updated_at, updated_by
`

func insert(ctx context.Context, tx *sql.Tx, caller tenant.Caller, e *expense.Expense) error {
	if err := caller.Owns(e.TenantID); err != nil {
		return err
	}

	e.TenantID = caller.TenantID

	err := tx.QueryRowContext(ctx, insertExpense,
		e.TenantID,
		e.Direction,
		e.Amount,
		e.Date,
		e.Category,
		e.CaseID,
		e.Description,
		e.Memo,
		caller.UserID,
	).Scan(&e.ID, &e.CreatedAt, &e.CreatedBy, &e.UpdatedAt, &e.UpdatedBy)
	if err != nil {
		return fmt.Errorf("creating expense: %w", database.MapError(err, table))
	}

	return nil
}

func (s *Store) Save(ctx context.Context, caller tenant.Caller, e *expense.Expense) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		if e.ID == uuid.Nil {
			return insert(ctx, tx, caller, e)
		}

		if err := caller.Owns(e.TenantID); err != nil {
			return err
		}

		query := `
			UPDATE expenses
			SET direction = $1, amount = $2, date = $3, category = $4, case_id = $5,
			    description = $6, memo = $7, updated_at = now(), updated_by = $8
			WHERE id = $9 AND tenant_id = $10 AND deleted_at IS NULL
			RETURNING updated_at, updated_by
		`

		err := tx.QueryRowContext(ctx, query,
			e.Direction,
			e.Amount,
			e.Date,
			e.Category,
			e.CaseID,
			e.Description,
			e.Memo,
			caller.UserID,
			e.ID,
			caller.TenantID,
		).Scan(&e.UpdatedAt, &e.UpdatedBy)
		if err != nil {
			return fmt.Errorf("updating expense: %w", database.MapError(err, table))
		}

		return nil
	})
}

func (s *Store) FindByID(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*expense.Expense, error) {
	query := `SELECT ` + selectExpenseColumns + `
		FROM expenses e
		WHERE e.id = $1 AND e.tenant_id = $2 AND e.deleted_at IS NULL`

	var e *expense.Expense

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		e, err = scanExpense(tx.QueryRowContext(ctx, query, id, caller.TenantID))
		if err != nil {
			return fmt.Errorf("getting expense: %w", database.MapError(err, table))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

// applyFilter adds the tenant predicate, the soft-delete predicate and every
// non-nil filter field to b.
func applyFilter(b squirrel.SelectBuilder, caller tenant.Caller, filter expense.ListFilter) squirrel.SelectBuilder {
	b = b.Where(squirrel.Eq{"e.tenant_id": caller.TenantID}).
		Where("e.deleted_at IS NULL")

	if filter.StartDate != nil {
		b = b.Where(squirrel.GtOrEq{"e.date": *filter.StartDate})
	}

	if filter.EndDate != nil {
		b = b.Where(squirrel.LtOrEq{"e.date": *filter.EndDate})
	}

	if filter.Category != nil {
		b = b.Where(squirrel.Eq{"e.category": *filter.Category})
	}

	if filter.CaseID != nil {
		b = b.Where(squirrel.Eq{"e.case_id": *filter.CaseID})
	}

	if filter.Direction != nil {
		b = b.Where(squirrel.Eq{"e.direction": *filter.Direction})
	}

	if ids := distinct(filter.TagIDs); len(ids) > 0 {
		b = b.Where(`(
			SELECT count(*) FROM expense_tags et
			WHERE et.expense_id = e.id AND et.tenant_id = e.tenant_id AND et.tag_id = ANY(?::uuid[])
		) = ?`, pq.Array(ids), len(ids))
	}

	return b
}

func distinct(ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id.String())
	}

	return out
}

func (s *Store) List(ctx context.Context, caller tenant.Caller, filter expense.ListFilter, page expense.Pageable) (*expense.Page, error) {
	countQuery, countArgs, err := applyFilter(psql.Select("count(*)").From("expenses e"), caller, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	b := applyFilter(psql.Select(selectExpenseColumns).From("expenses e"), caller, filter).
		OrderBy("e.date DESC", "e.created_at DESC", "e.id DESC").
		Limit(uint64(page.Limit) + 1)

	if page.After != nil {
		b = b.Where("(e.date, e.created_at, e.id) < (?::date, ?::timestamptz, ?::uuid)", page.After.Date, page.After.CreatedAt, page.After.ID)
	} else if page.Offset > 0 {
		b = b.Offset(uint64(page.Offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	result := &expense.Page{Limit: page.Limit, Offset: page.Offset}

	err = s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, countQuery, countArgs...).Scan(&result.Total); err != nil {
			return fmt.Errorf("counting expenses: %w", err)
		}

		items, err := queryExpenses(ctx, tx, query, args...)
		if err != nil {
			return fmt.Errorf("listing expenses: %w", err)
		}

		result.Items = items

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Items) > page.Limit {
		result.Items = result.Items[:page.Limit]
		next := expense.CursorOf(result.Items[len(result.Items)-1])
		result.NextCursor = &next
	}

	return result, nil
}

func queryExpenses(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]*expense.Expense, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*expense.Expense

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expense rows: %w", err)
	}

	return expenses, nil
}

// SoftDelete marks the row deleted. A row that is already deleted is left
// untouched and nil is returned.
func (s *Store) SoftDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	query := `
		UPDATE expenses
		SET deleted_at = now(), deleted_by = $3, updated_at = now(), updated_by = $3
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, id, caller.TenantID, caller.UserID)
		if err != nil {
			return fmt.Errorf("deleting expense: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		var exists bool

		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1 AND tenant_id = $2)`,
			id, caller.TenantID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking expense: %w", err)
		}

		if !exists {
			return database.ErrNotFound
		}

		return nil
	})
}

func (s *Store) Restore(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	query := `
		UPDATE expenses
		SET deleted_at = NULL, deleted_by = NULL, restored_at = now(), restored_by = $3,
		    updated_at = now(), updated_by = $3
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NOT NULL
	`

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, id, caller.TenantID, caller.UserID)
		if err != nil {
			return fmt.Errorf("restoring expense: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		var restoredAt *time.Time

		err = tx.QueryRowContext(ctx,
			`SELECT restored_at FROM expenses WHERE id = $1 AND tenant_id = $2`,
			id, caller.TenantID,
		).Scan(&restoredAt)
		if err != nil {
			return fmt.Errorf("checking expense: %w", database.MapError(err, table))
		}

		if restoredAt == nil {
			return database.ErrNotDeleted
		}

		return nil
	})
}

// HardDelete removes the expense and its tag links, releasing tag usage.
// The expense_attachments foreign key rejects the delete while attachment
// links exist. Links to tags the caller cannot see, another user's personal
// tags, would cascade without their usage being released, so they reject
// the delete as well.
func (s *Store) HardDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	hiddenLinks := `
		SELECT EXISTS (
			SELECT 1 FROM expense_tags et
			WHERE et.expense_id = $1 AND et.tenant_id = $2
			  AND NOT EXISTS (SELECT 1 FROM tags t WHERE t.id = et.tag_id AND t.tenant_id = et.tenant_id)
		)
	`

	releaseTags := `
		UPDATE tags t
		SET usage_count = GREATEST(t.usage_count - 1, 0)
		FROM expense_tags et
		WHERE et.expense_id = $1 AND et.tenant_id = $2
		  AND t.id = et.tag_id AND t.tenant_id = et.tenant_id
	`

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var hidden bool
		if err := tx.QueryRowContext(ctx, hiddenLinks, id, caller.TenantID).Scan(&hidden); err != nil {
			return fmt.Errorf("checking tag links: %w", err)
		}

		if hidden {
			return database.NewConstraintError(database.ConstraintForeignKey, "expense_tags", "expense_tags_expense_fk")
		}

		if _, err := tx.ExecContext(ctx, releaseTags, id, caller.TenantID); err != nil {
			return fmt.Errorf("releasing tag usage: %w", database.MapError(err, "tags"))
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND tenant_id = $2`, id, caller.TenantID)
		if err != nil {
			return fmt.Errorf("purging expense: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n == 0 {
			return database.ErrNotFound
		}

		return nil
	})
}

func (s *Store) ListForBalance(ctx context.Context, caller tenant.Caller, filter expense.ListFilter) ([]*expense.Expense, error) {
	query, args, err := applyFilter(psql.Select(selectExpenseColumns).From("expenses e"), caller, filter).
		OrderBy("e.date ASC", "e.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building balance query: %w", err)
	}

	var expenses []*expense.Expense

	err = s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		expenses, err = queryExpenses(ctx, tx, query, args...)
		if err != nil {
			return fmt.Errorf("listing expenses for balance: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return expenses, nil
}

func (s *Store) SummarizeByCategory(ctx context.Context, caller tenant.Caller, filter expense.ListFilter) ([]expense.CategoryTotal, error) {
	query, args, err := applyFilter(
		psql.Select("e.category", "e.direction", "COALESCE(SUM(e.amount), 0)", "count(*)").From("expenses e"),
		caller, filter,
	).
		GroupBy("e.category", "e.direction").
		OrderBy("e.category", "e.direction").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building summary query: %w", err)
	}

	var totals []expense.CategoryTotal

	err = s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("summarizing expenses: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var ct expense.CategoryTotal

			var direction string

			if err := rows.Scan(&ct.Category, &direction, &ct.Total, &ct.Count); err != nil {
				return fmt.Errorf("scanning category total: %w", err)
			}

			ct.Direction = expense.Direction(direction)
			totals = append(totals, ct)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// importLockKey serialises imports per tenant.
func importLockKey(tenantID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("expense-import"))
	h.Write(tenantID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx     *sql.Tx
	caller tenant.Caller
}

func (s *Store) BeginImport(ctx context.Context, caller tenant.Caller) (expense.ImportTx, error) {
	dbTx, err := s.rls.Begin(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	lockKey := importLockKey(caller.TenantID)
	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx, caller: caller}, nil
}

func (itx *importTx) Commit() error { return itx.tx.Commit() }

// Rollback after a successful Commit is a no-op.
func (itx *importTx) Rollback() error {
	if err := itx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

func (itx *importTx) FindDuplicates(ctx context.Context, params []expense.CreateParams) ([]*expense.Expense, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate := params[0].Date
	maxDate := params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	query := `SELECT ` + selectExpenseColumns + `
		FROM expenses e
		WHERE e.tenant_id = $1 AND e.deleted_at IS NULL AND e.date >= $2 AND e.date <= $3
		ORDER BY e.date ASC`

	// The service matches rows against params; this only narrows by range.
	expenses, err := queryExpenses(ctx, itx.tx, query, itx.caller.TenantID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	return expenses, nil
}

func (itx *importTx) CreateExpenses(ctx context.Context, expenses []*expense.Expense) error {
	for _, e := range expenses {
		if err := insert(ctx, itx.tx, itx.caller, e); err != nil {
			return err
		}
	}

	return nil
}
