// Package rls pins the caller's tenant and user onto each database
// transaction so the row-level security policies installed by the
// migrations can filter rows independently of the SQL the stores issue.
package rls

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

// Settings are transaction-local (is_local = true) and vanish at COMMIT or
// ROLLBACK, so a pooled connection never carries one caller's scope into
// another caller's transaction.
const (
	setCallerScope = `SELECT set_config('app.tenant_id', $1, true), set_config('app.user_id', $2, true)`
	setSystemScope = `SELECT set_config('app.system', 'on', true)`
)

type Enforcer struct {
	db *sql.DB
}

func New(db *sql.DB) *Enforcer {
	return &Enforcer{db: db}
}

// InTx runs fn inside a transaction scoped to caller. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (e *Enforcer) InTx(ctx context.Context, caller tenant.Caller, fn func(*sql.Tx) error) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	return e.run(ctx, fn, setCallerScope, caller.TenantID.String(), caller.UserID.String())
}

// InSystemTx runs fn with the cross-tenant system scope. Only the expired
// upload cleanup uses it.
func (e *Enforcer) InSystemTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return e.run(ctx, fn, setSystemScope)
}

// Begin opens a caller-scoped transaction for work that spans several
// calls, such as a batch import. The caller owns Commit and Rollback.
func (e *Enforcer) Begin(ctx context.Context, caller tenant.Caller) (*sql.Tx, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	return e.begin(ctx, setCallerScope, caller.TenantID.String(), caller.UserID.String())
}

func (e *Enforcer) begin(ctx context.Context, scope string, args ...any) (*sql.Tx, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, scope, args...); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("setting row-level scope: %w", err)
	}

	return tx, nil
}

func (e *Enforcer) run(ctx context.Context, fn func(*sql.Tx) error, scope string, args ...any) error {
	tx, err := e.begin(ctx, scope, args...)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
