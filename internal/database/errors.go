package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrNotFound covers both absent rows and rows owned by another tenant.
	// Callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotDeleted is returned when restoring a row that was never deleted.
	ErrNotDeleted = errors.New("not deleted")
)

// ConstraintKind classifies the integrity rule a write broke.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintNotNull    ConstraintKind = "not_null"
)

// ConstraintError carries details about a rejected write.
// errors.Is(err, ErrConstraintViolation) reports true for every ConstraintError.
type ConstraintError struct {
	Kind       ConstraintKind
	Table      string
	Constraint string
	Err        error
}

func NewConstraintError(kind ConstraintKind, table, constraint string) *ConstraintError {
	return &ConstraintError{Kind: kind, Table: table, Constraint: constraint}
}

func (e *ConstraintError) Error() string {
	msg := fmt.Sprintf("%s constraint violation on %s", e.Kind, e.Table)
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (%s)", e.Constraint)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation
}

// SQLSTATE codes the stores care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	// Raised when a row fails a row-level security WITH CHECK clause.
	codeInsufficientPrivilege = "42501"
)

// MapError translates driver errors into the package taxonomy. Both the pgx
// driver and lib/pq report SQLSTATEs, so either can sit behind database/sql.
func MapError(err error, table string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	code, constraint, ok := sqlState(err)
	if !ok {
		return err
	}

	switch code {
	case codeUniqueViolation:
		return &ConstraintError{Kind: ConstraintUnique, Table: table, Constraint: constraint, Err: err}
	case codeForeignKeyViolation:
		return &ConstraintError{Kind: ConstraintForeignKey, Table: table, Constraint: constraint, Err: err}
	case codeCheckViolation:
		return &ConstraintError{Kind: ConstraintCheck, Table: table, Constraint: constraint, Err: err}
	case codeNotNullViolation:
		return &ConstraintError{Kind: ConstraintNotNull, Table: table, Constraint: constraint, Err: err}
	case codeInsufficientPrivilege:
		return ErrNotFound
	}

	return err
}

func sqlState(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}

	return "", "", false
}
