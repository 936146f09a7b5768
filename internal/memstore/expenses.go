package memstore

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const expensesTable = "expenses"

type Expenses struct {
	db *DB
}

func cloneExpense(e *expense.Expense) *expense.Expense {
	c := *e
	return &c
}

func checkExpense(e *expense.Expense) error {
	switch {
	case !e.Direction.Valid():
		return database.NewConstraintError(database.ConstraintCheck, expensesTable, "expenses_direction_check")
	case !e.Amount.IsPositive():
		return database.NewConstraintError(database.ConstraintCheck, expensesTable, "expenses_amount_positive")
	case strings.TrimSpace(e.Category) == "":
		return database.NewConstraintError(database.ConstraintCheck, expensesTable, "expenses_category_present")
	}

	return nil
}

// insert must be called with db.mu held.
func (db *DB) insertExpense(caller tenant.Caller, e *expense.Expense) error {
	if err := caller.Owns(e.TenantID); err != nil {
		return err
	}

	if err := checkExpense(e); err != nil {
		return err
	}

	now := db.timestamp()

	e.ID = uuid.New()
	e.TenantID = caller.TenantID
	e.CreatedAt, e.UpdatedAt = now, now
	e.CreatedBy, e.UpdatedBy = caller.UserID, caller.UserID

	db.expenses[e.ID] = cloneExpense(e)

	return nil
}

// liveExpense must be called with db.mu held.
func (db *DB) liveExpense(caller tenant.Caller, id uuid.UUID) (*expense.Expense, error) {
	e, ok := db.expenses[id]
	if !ok || !rls.ExpenseVisible(caller, e) || e.Deleted() {
		return nil, database.ErrNotFound
	}

	return e, nil
}

func (r *Expenses) Save(_ context.Context, caller tenant.Caller, e *expense.Expense) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if e.ID == uuid.Nil {
		return r.db.insertExpense(caller, e)
	}

	if err := caller.Owns(e.TenantID); err != nil {
		return err
	}

	stored, err := r.db.liveExpense(caller, e.ID)
	if err != nil {
		return err
	}

	if err := checkExpense(e); err != nil {
		return err
	}

	stored.Direction = e.Direction
	stored.Amount = e.Amount
	stored.Date = e.Date
	stored.Category = e.Category
	stored.CaseID = e.CaseID
	stored.Description = e.Description
	stored.Memo = e.Memo
	stored.UpdatedAt = r.db.timestamp()
	stored.UpdatedBy = caller.UserID

	e.UpdatedAt, e.UpdatedBy = stored.UpdatedAt, stored.UpdatedBy

	return nil
}

func (r *Expenses) FindByID(_ context.Context, caller tenant.Caller, id uuid.UUID) (*expense.Expense, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, err := r.db.liveExpense(caller, id)
	if err != nil {
		return nil, err
	}

	return cloneExpense(e), nil
}

// matching must be called with db.mu held.
func (db *DB) matching(caller tenant.Caller, filter expense.ListFilter) []*expense.Expense {
	var out []*expense.Expense

	for _, e := range db.expenses {
		if !rls.ExpenseVisible(caller, e) || e.Deleted() {
			continue
		}

		if filter.StartDate != nil && e.Date.Before(*filter.StartDate) {
			continue
		}

		if filter.EndDate != nil && e.Date.After(*filter.EndDate) {
			continue
		}

		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}

		if filter.CaseID != nil && (e.CaseID == nil || *e.CaseID != *filter.CaseID) {
			continue
		}

		if filter.Direction != nil && e.Direction != *filter.Direction {
			continue
		}

		if !db.hasTags(e.ID, filter.TagIDs) {
			continue
		}

		out = append(out, cloneExpense(e))
	}

	return out
}

func (db *DB) hasTags(expenseID uuid.UUID, tagIDs []uuid.UUID) bool {
	for _, id := range tagIDs {
		if _, ok := db.expenseTags[pair{expenseID, id}]; !ok {
			return false
		}
	}

	return true
}

func (r *Expenses) List(_ context.Context, caller tenant.Caller, filter expense.ListFilter, page expense.Pageable) (*expense.Page, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	all := r.db.matching(caller, filter)
	r.db.mu.Unlock()

	slices.SortFunc(all, func(a, b *expense.Expense) int {
		if expense.Precedes(a, b) {
			return -1
		}

		if expense.Precedes(b, a) {
			return 1
		}

		return 0
	})

	result := &expense.Page{Total: len(all), Limit: page.Limit, Offset: page.Offset}

	rest := all

	switch {
	case page.After != nil:
		start := len(all)

		for i, e := range all {
			if page.After.Admits(e) {
				start = i
				break
			}
		}

		rest = all[start:]
	case page.Offset > 0:
		rest = all[min(page.Offset, len(all)):]
	}

	if page.Limit < len(rest) {
		result.Items = rest[:page.Limit]

		if page.Limit > 0 {
			next := expense.CursorOf(result.Items[len(result.Items)-1])
			result.NextCursor = &next
		}

		return result, nil
	}

	result.Items = rest

	return result, nil
}

func (r *Expenses) SoftDelete(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.expenses[id]
	if !ok || !rls.ExpenseVisible(caller, e) {
		return database.ErrNotFound
	}

	if e.Deleted() {
		return nil
	}

	now := r.db.timestamp()
	e.DeletedAt = ptr(now)
	e.DeletedBy = ptr(caller.UserID)
	e.UpdatedAt, e.UpdatedBy = now, caller.UserID

	return nil
}

func (r *Expenses) Restore(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.expenses[id]
	if !ok || !rls.ExpenseVisible(caller, e) {
		return database.ErrNotFound
	}

	if !e.Deleted() {
		if e.RestoredAt == nil {
			return database.ErrNotDeleted
		}

		return nil
	}

	now := r.db.timestamp()
	e.DeletedAt, e.DeletedBy = nil, nil
	e.RestoredAt = ptr(now)
	e.RestoredBy = ptr(caller.UserID)
	e.UpdatedAt, e.UpdatedBy = now, caller.UserID

	return nil
}

// HardDelete is refused while attachment links or links to tags the caller
// cannot see exist. Tag links are removed with the expense and their usage
// released.
func (r *Expenses) HardDelete(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.expenses[id]
	if !ok || !rls.ExpenseVisible(caller, e) {
		return database.ErrNotFound
	}

	for key := range r.db.expenseAttachments {
		if key.left == id {
			return database.NewConstraintError(database.ConstraintForeignKey, expensesTable, "expense_attachments_expense_fk")
		}
	}

	for key := range r.db.expenseTags {
		if key.left != id {
			continue
		}

		if _, visible := r.db.visibleTag(caller, key.right); !visible {
			return database.NewConstraintError(database.ConstraintForeignKey, "expense_tags", "expense_tags_expense_fk")
		}
	}

	for key := range r.db.expenseTags {
		if key.left != id {
			continue
		}

		if t, ok := r.db.tags[key.right]; ok && t.UsageCount > 0 {
			t.UsageCount--
		}

		delete(r.db.expenseTags, key)
	}

	delete(r.db.expenses, id)

	return nil
}

func (r *Expenses) ListForBalance(_ context.Context, caller tenant.Caller, filter expense.ListFilter) ([]*expense.Expense, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	all := r.db.matching(caller, filter)
	r.db.mu.Unlock()

	slices.SortFunc(all, func(a, b *expense.Expense) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return all, nil
}

func (r *Expenses) SummarizeByCategory(_ context.Context, caller tenant.Caller, filter expense.ListFilter) ([]expense.CategoryTotal, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	all := r.db.matching(caller, filter)
	r.db.mu.Unlock()

	type key struct {
		category  string
		direction expense.Direction
	}

	totals := make(map[key]*expense.CategoryTotal)

	for _, e := range all {
		k := key{e.Category, e.Direction}

		ct, ok := totals[k]
		if !ok {
			ct = &expense.CategoryTotal{Category: e.Category, Direction: e.Direction, Total: decimal.Zero}
			totals[k] = ct
		}

		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++
	}

	out := make([]expense.CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		out = append(out, *ct)
	}

	slices.SortFunc(out, func(a, b expense.CategoryTotal) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Direction, b.Direction))
	})

	return out, nil
}

type importTx struct {
	db      *DB
	caller  tenant.Caller
	pending []*expense.Expense
	done    bool
}

var errImportDone = errors.New("import already finished")

// BeginImport holds the import lock until Commit or Rollback.
func (r *Expenses) BeginImport(_ context.Context, caller tenant.Caller) (expense.ImportTx, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.importMu.Lock()

	return &importTx{db: r.db, caller: caller}, nil
}

func (itx *importTx) FindDuplicates(_ context.Context, params []expense.CreateParams) ([]*expense.Expense, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate, maxDate := params[0].Date, params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	itx.db.mu.Lock()
	defer itx.db.mu.Unlock()

	return itx.db.matching(itx.caller, expense.ListFilter{StartDate: &minDate, EndDate: &maxDate}), nil
}

func (itx *importTx) CreateExpenses(_ context.Context, expenses []*expense.Expense) error {
	if itx.done {
		return errImportDone
	}

	for _, e := range expenses {
		if err := itx.caller.Owns(e.TenantID); err != nil {
			return err
		}

		if err := checkExpense(e); err != nil {
			return err
		}
	}

	itx.pending = append(itx.pending, expenses...)

	return nil
}

func (itx *importTx) Commit() error {
	if itx.done {
		return errImportDone
	}

	defer itx.finish()

	itx.db.mu.Lock()
	defer itx.db.mu.Unlock()

	inserted := make([]uuid.UUID, 0, len(itx.pending))

	for _, e := range itx.pending {
		if err := itx.db.insertExpense(itx.caller, e); err != nil {
			for _, id := range inserted {
				delete(itx.db.expenses, id)
			}

			return err
		}

		inserted = append(inserted, e.ID)
	}

	return nil
}

func (itx *importTx) Rollback() error {
	if !itx.done {
		itx.finish()
	}

	return nil
}

func (itx *importTx) finish() {
	itx.done = true
	itx.pending = nil
	itx.db.importMu.Unlock()
}
