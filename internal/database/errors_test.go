package database_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
)

func TestMapError(t *testing.T) {
	type testCase struct {
		name     string
		err      error
		wantIs   error
		wantKind database.ConstraintKind
	}

	tests := []testCase{
		{
			name:   "NoRows",
			err:    sql.ErrNoRows,
			wantIs: database.ErrNotFound,
		},
		{
			name:   "WrappedNoRows",
			err:    fmt.Errorf("scanning: %w", sql.ErrNoRows),
			wantIs: database.ErrNotFound,
		},
		{
			name:     "PgxUnique",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "tags_scope_name_uniq"},
			wantIs:   database.ErrConstraintViolation,
			wantKind: database.ConstraintUnique,
		},
		{
			name:     "PgxForeignKey",
			err:      &pgconn.PgError{Code: "23503", ConstraintName: "expense_attachments_expense_fk"},
			wantIs:   database.ErrConstraintViolation,
			wantKind: database.ConstraintForeignKey,
		},
		{
			name:     "PqCheck",
			err:      &pq.Error{Code: "23514", Constraint: "attachments_file_size_check"},
			wantIs:   database.ErrConstraintViolation,
			wantKind: database.ConstraintCheck,
		},
		{
			name:     "PqNotNull",
			err:      &pq.Error{Code: "23502"},
			wantIs:   database.ErrConstraintViolation,
			wantKind: database.ConstraintNotNull,
		},
		{
			name:   "RowLevelSecurityRejection",
			err:    &pgconn.PgError{Code: "42501", Message: "new row violates row-level security policy"},
			wantIs: database.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := database.MapError(tt.err, "tags")
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.wantIs)

			if tt.wantKind == "" {
				return
			}

			var ce *database.ConstraintError
			require.True(t, errors.As(got, &ce))
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, "tags", ce.Table)
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, database.MapError(nil, "expenses"))

	other := errors.New("connection reset")
	assert.Equal(t, other, database.MapError(other, "expenses"))
}

func TestConstraintError_Message(t *testing.T) {
	err := database.NewConstraintError(database.ConstraintUnique, "tags", "tags_scope_name_uniq")
	assert.Equal(t, "unique constraint violation on tags (tags_scope_name_uniq)", err.Error())
	assert.ErrorIs(t, err, database.ErrConstraintViolation)
}
