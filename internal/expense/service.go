package expense

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=expense
type Repository interface {
	// Save inserts when e.ID is nil and updates otherwise. Generated ids and
	// timestamps are written back into e.
	Save(ctx context.Context, caller tenant.Caller, e *Expense) error
	FindByID(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, caller tenant.Caller, filter ListFilter, page Pageable) (*Page, error)

	SoftDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error
	Restore(ctx context.Context, caller tenant.Caller, id uuid.UUID) error
	HardDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error

	ListForBalance(ctx context.Context, caller tenant.Caller, filter ListFilter) ([]*Expense, error)
	SummarizeByCategory(ctx context.Context, caller tenant.Caller, filter ListFilter) ([]CategoryTotal, error)

	// BeginImport opens the import transaction holding the tenant's import
	// lock, so concurrent imports into one tenant run one after another.
	BeginImport(ctx context.Context, caller tenant.Caller) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]*Expense, error)
	CreateExpenses(ctx context.Context, expenses []*Expense) error
	Commit() error
	Rollback() error
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Service struct {
	repo         Repository
	defaultLimit int
	maxLimit     int
}

type Option func(*Service)

// WithPageLimits overrides the default and maximum page sizes.
func WithPageLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}

		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		defaultLimit: DefaultPageLimit,
		maxLimit:     MaxPageLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	Direction   Direction
	Amount      decimal.Decimal
	Date        time.Time
	Category    string
	CaseID      *uuid.UUID
	Description string
	Memo        string
}

// UpdateParams carries optional field changes. ClearCaseID detaches the
// expense from its case.
type UpdateParams struct {
	Direction   *Direction
	Amount      *decimal.Decimal
	Date        *time.Time
	Category    *string
	CaseID      *uuid.UUID
	ClearCaseID bool
	Description *string
	Memo        *string
}

func (s *Service) Create(ctx context.Context, caller tenant.Caller, params CreateParams) (*Expense, error) {
	e := fromParams(caller, params)

	if err := validate(e); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, caller, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Get(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Expense, error) {
	return s.repo.FindByID(ctx, caller, id)
}

func (s *Service) List(ctx context.Context, caller tenant.Caller, filter ListFilter, page Pageable) (*Page, error) {
	switch {
	case page.Limit <= 0:
		page.Limit = s.defaultLimit
	case page.Limit > s.maxLimit:
		page.Limit = s.maxLimit
	}

	if page.Offset < 0 {
		page.Offset = 0
	}

	return s.repo.List(ctx, caller, filter, page)
}

func (s *Service) Update(ctx context.Context, caller tenant.Caller, id uuid.UUID, params UpdateParams) (*Expense, error) {
	e, err := s.repo.FindByID(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if params.Direction != nil {
		e.Direction = *params.Direction
	}

	if params.Amount != nil {
		e.Amount = *params.Amount
	}

	if params.Date != nil {
		e.Date = dateOnly(*params.Date)
	}

	if params.Category != nil {
		e.Category = strings.TrimSpace(*params.Category)
	}

	if params.CaseID != nil {
		e.CaseID = params.CaseID
	}

	if params.ClearCaseID {
		e.CaseID = nil
	}

	if params.Description != nil {
		e.Description = *params.Description
	}

	if params.Memo != nil {
		e.Memo = *params.Memo
	}

	if err := validate(e); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, caller, e); err != nil {
		return nil, err
	}

	return e, nil
}

// Delete soft-deletes the expense. Deleting an already deleted expense
// succeeds without changing it.
func (s *Service) Delete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, caller, id)
}

// Restore clears the deletion markers. It fails with database.ErrNotDeleted
// for an expense that was never deleted and is a no-op after a prior restore.
func (s *Service) Restore(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Expense, error) {
	if err := s.repo.Restore(ctx, caller, id); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, caller, id)
}

// Purge removes the row for good. Expenses with linked attachments, or
// with links to another user's personal tags, are protected and fail with a
// foreign key ConstraintError.
func (s *Service) Purge(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.repo.HardDelete(ctx, caller, id)
}

// Balances returns the running balance over the filtered expenses, ordered
// by date and then id. Nothing is cached; each call recomputes from rows.
func (s *Service) Balances(ctx context.Context, caller tenant.Caller, filter ListFilter) ([]BalanceEntry, error) {
	expenses, err := s.repo.ListForBalance(ctx, caller, filter)
	if err != nil {
		return nil, err
	}

	return RunningBalance(expenses), nil
}

func (s *Service) Summary(ctx context.Context, caller tenant.Caller, filter ListFilter) ([]CategoryTotal, error) {
	return s.repo.SummarizeByCategory(ctx, caller, filter)
}

// RunningBalance sorts by (date, id) and accumulates signed amounts.
// Soft-deleted rows are skipped.
func RunningBalance(expenses []*Expense) []BalanceEntry {
	ordered := make([]*Expense, 0, len(expenses))

	for _, e := range expenses {
		if e.Deleted() {
			continue
		}

		ordered = append(ordered, e)
	}

	slices.SortStableFunc(ordered, func(a, b *Expense) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	entries := make([]BalanceEntry, len(ordered))
	balance := decimal.Zero

	for i, e := range ordered {
		balance = balance.Add(e.Signed())
		entries[i] = BalanceEntry{Expense: e, Balance: balance}
	}

	return entries
}

type ImportResult struct {
	Imported  []*Expense
	New       []CreateParams
	Conflicts []Conflict
}

type Conflict struct {
	Incoming CreateParams
	Existing *Expense
}

type dupKey struct {
	Date        string
	Amount      string
	Direction   Direction
	Category    string
	Description string
}

func keyOf(date time.Time, amount decimal.Decimal, dir Direction, category, description string) dupKey {
	return dupKey{
		Date:        date.Format(time.DateOnly),
		Amount:      amount.StringFixed(2),
		Direction:   dir,
		Category:    category,
		Description: description,
	}
}

// ImportBatch creates the batch unless some rows look like expenses that
// already exist. In that case nothing is written and the caller gets the
// split between new rows and conflicts to confirm via CreateBatch.
func (s *Service) ImportBatch(ctx context.Context, caller tenant.Caller, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	expenses, err := paramsToExpenses(caller, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	lookup := make(map[dupKey]*Expense, len(duplicates))
	for _, d := range duplicates {
		lookup[keyOf(d.Date, d.Amount, d.Direction, d.Category, d.Description)] = d
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for i, p := range params {
		e := expenses[i]

		existing, found := lookup[keyOf(e.Date, e.Amount, e.Direction, e.Category, e.Description)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	if err := itx.CreateExpenses(ctx, expenses); err != nil {
		return nil, fmt.Errorf("create expenses: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return &ImportResult{Imported: expenses}, nil
}

// CreateBatch writes every row in one transaction without duplicate checks.
func (s *Service) CreateBatch(ctx context.Context, caller tenant.Caller, params []CreateParams) ([]*Expense, error) {
	if len(params) == 0 {
		return nil, nil
	}

	expenses, err := paramsToExpenses(caller, params)
	if err != nil {
		return nil, err
	}

	itx, err := s.repo.BeginImport(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	if err := itx.CreateExpenses(ctx, expenses); err != nil {
		return nil, fmt.Errorf("create expenses: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return expenses, nil
}

func fromParams(caller tenant.Caller, p CreateParams) *Expense {
	dir := p.Direction
	if dir == "" {
		dir = DirectionExpense
	}

	return &Expense{
		TenantID:    caller.TenantID,
		Direction:   dir,
		Amount:      p.Amount,
		Date:        dateOnly(p.Date),
		Category:    strings.TrimSpace(p.Category),
		CaseID:      p.CaseID,
		Description: p.Description,
		Memo:        p.Memo,
	}
}

func paramsToExpenses(caller tenant.Caller, params []CreateParams) ([]*Expense, error) {
	expenses := make([]*Expense, len(params))

	for i, p := range params {
		e := fromParams(caller, p)
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		expenses[i] = e
	}

	return expenses, nil
}

func validate(e *Expense) error {
	switch {
	case !e.Direction.Valid():
		return database.NewConstraintError(database.ConstraintCheck, "expenses", "expenses_direction_check")
	case !e.Amount.IsPositive():
		return database.NewConstraintError(database.ConstraintCheck, "expenses", "expenses_amount_positive")
	case strings.TrimSpace(e.Category) == "":
		return database.NewConstraintError(database.ConstraintCheck, "expenses", "expenses_category_present")
	case e.Date.IsZero():
		return database.NewConstraintError(database.ConstraintNotNull, "expenses", "date")
	}

	return nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}

	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
