package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const table = "tags"

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

// Execer is satisfied by *sql.Tx, so the usage helpers can join a
// transaction opened elsewhere.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanTag(s scanner) (*tag.Tag, error) {
	var t tag.Tag

	var scope string

	if err := s.Scan(
		&t.ID, &t.TenantID, &t.Name, &t.NormalizedName, &t.Color, &scope, &t.OwnerID,
		&t.UsageCount, &t.LastUsedAt,
		&t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy,
		&t.DeletedAt, &t.DeletedBy, &t.RestoredAt, &t.RestoredBy,
	); err != nil {
		return nil, err
	}

	t.Scope = tag.Scope(scope)

	return &t, nil
}

const selectTagColumns = `
	t.id, t.tenant_id, t.name, t.normalized_name, t.color, t.scope, t.owner_id,
	t.usage_count, t.last_used_at,
	t.created_at, t.created_by, t.updated_at, t.updated_by,
	t.deleted_at, t.deleted_by, t.restored_at, t.restored_by
`

// visible restricts rows to the caller's tenant and hides other users'
// personal tags. $1 is the tenant id and $2 the user id.
const visible = `t.tenant_id = $1 AND (t.scope = 'TENANT' OR t.owner_id = $2)`

func (s *Store) Save(ctx context.Context, caller tenant.Caller, t *tag.Tag) error {
	if err := caller.Owns(t.TenantID); err != nil {
		return err
	}

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		if t.ID == uuid.Nil {
			query := `
				INSERT INTO tags (tenant_id, name, normalized_name, color, scope, owner_id, created_by, updated_by)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
				RETURNING id, usage_count, created_at, created_by, updated_at, updated_by
			`

			t.TenantID = caller.TenantID

			err := tx.QueryRowContext(ctx, query,
				t.TenantID,
				t.Name,
				t.NormalizedName,
				t.Color,
				t.Scope,
				t.OwnerID,
				caller.UserID,
			).Scan(&t.ID, &t.UsageCount, &t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy)
			if err != nil {
				return fmt.Errorf("creating tag: %w", database.MapError(err, table))
			}

			return nil
		}

		query := `
			UPDATE tags t
			SET name = $3, normalized_name = $4, color = $5, updated_at = now(), updated_by = $2
			WHERE t.id = $6 AND ` + visible + ` AND t.deleted_at IS NULL
			RETURNING t.updated_at, t.updated_by
		`

		err := tx.QueryRowContext(ctx, query,
			caller.TenantID,
			caller.UserID,
			t.Name,
			t.NormalizedName,
			t.Color,
			t.ID,
		).Scan(&t.UpdatedAt, &t.UpdatedBy)
		if err != nil {
			return fmt.Errorf("updating tag: %w", database.MapError(err, table))
		}

		return nil
	})
}

func (s *Store) FindByID(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*tag.Tag, error) {
	query := `SELECT ` + selectTagColumns + `
		FROM tags t
		WHERE ` + visible + ` AND t.id = $3 AND t.deleted_at IS NULL`

	var t *tag.Tag

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		var err error

		t, err = scanTag(tx.QueryRowContext(ctx, query, caller.TenantID, caller.UserID, id))
		if err != nil {
			return fmt.Errorf("getting tag: %w", database.MapError(err, table))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Store) FindByScopeAndOwner(ctx context.Context, caller tenant.Caller, scope tag.Scope, ownerID *uuid.UUID) ([]*tag.Tag, error) {
	query := `SELECT ` + selectTagColumns + `
		FROM tags t
		WHERE ` + visible + ` AND t.scope = $3 AND t.deleted_at IS NULL`

	args := []any{caller.TenantID, caller.UserID, scope}

	if scope == tag.ScopePersonal {
		owner := caller.UserID
		if ownerID != nil {
			owner = *ownerID
		}

		query += ` AND t.owner_id = $4`

		args = append(args, owner)
	}

	query += ` ORDER BY t.normalized_name ASC`

	return s.queryTags(ctx, caller, "listing tags", query, args...)
}

func (s *Store) ExistsByNormalizedNameInScope(ctx context.Context, caller tenant.Caller, normalized string, scope tag.Scope, ownerID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM tags
			WHERE tenant_id = $1 AND normalized_name = $2 AND scope = $3
			  AND COALESCE(owner_id, '00000000-0000-0000-0000-000000000000'::uuid)
			    = COALESCE($4::uuid, '00000000-0000-0000-0000-000000000000'::uuid)
			  AND deleted_at IS NULL
		)
	`

	var exists bool

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query, caller.TenantID, normalized, scope, ownerID).Scan(&exists); err != nil {
			return fmt.Errorf("checking tag name: %w", err)
		}

		return nil
	})

	return exists, err
}

// Increment bumps usage_count and touches last_used_at in one statement.
// Deleted tags cannot gain usage.
func Increment(ctx context.Context, ex Execer, tenantID, id uuid.UUID) error {
	query := `
		UPDATE tags
		SET usage_count = usage_count + 1, last_used_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`

	return affectOne(ex.ExecContext(ctx, query, id, tenantID))
}

// Decrement lowers usage_count, never below zero.
func Decrement(ctx context.Context, ex Execer, tenantID, id uuid.UUID) error {
	query := `
		UPDATE tags
		SET usage_count = GREATEST(usage_count - 1, 0)
		WHERE id = $1 AND tenant_id = $2
	`

	return affectOne(ex.ExecContext(ctx, query, id, tenantID))
}

func affectOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("updating tag usage: %w", database.MapError(err, table))
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}

	return nil
}

func (s *Store) IncrementUsage(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		return Increment(ctx, tx, caller.TenantID, id)
	})
}

func (s *Store) DecrementUsage(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		return Decrement(ctx, tx, caller.TenantID, id)
	})
}

func (s *Store) FindMostUsed(ctx context.Context, caller tenant.Caller, limit int) ([]*tag.Tag, error) {
	query := `SELECT ` + selectTagColumns + `
		FROM tags t
		WHERE ` + visible + ` AND t.deleted_at IS NULL
		ORDER BY t.usage_count DESC, t.last_used_at DESC NULLS LAST, t.normalized_name ASC
		LIMIT $3`

	return s.queryTags(ctx, caller, "listing most used tags", query, caller.TenantID, caller.UserID, limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) Search(ctx context.Context, caller tenant.Caller, prefix string, limit int) ([]*tag.Tag, error) {
	query := `SELECT ` + selectTagColumns + `
		FROM tags t
		WHERE ` + visible + ` AND t.deleted_at IS NULL AND t.normalized_name LIKE $3 || '%'
		ORDER BY t.usage_count DESC, t.normalized_name ASC
		LIMIT $4`

	return s.queryTags(ctx, caller, "searching tags", query,
		caller.TenantID, caller.UserID, likeEscaper.Replace(prefix), limit)
}

func (s *Store) queryTags(ctx context.Context, caller tenant.Caller, op, query string, args ...any) ([]*tag.Tag, error) {
	var tags []*tag.Tag

	err := s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTag(rows)
			if err != nil {
				return fmt.Errorf("scanning tag: %w", err)
			}

			tags = append(tags, t)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return tags, nil
}

func (s *Store) SoftDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	query := `
		UPDATE tags t
		SET deleted_at = now(), deleted_by = $2, updated_at = now(), updated_by = $2
		WHERE t.id = $3 AND ` + visible + ` AND t.deleted_at IS NULL
	`

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, caller.TenantID, caller.UserID, id)
		if err != nil {
			return fmt.Errorf("deleting tag: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		var deletedAt *time.Time

		err = tx.QueryRowContext(ctx,
			`SELECT t.deleted_at FROM tags t WHERE t.id = $3 AND `+visible,
			caller.TenantID, caller.UserID, id,
		).Scan(&deletedAt)
		if err != nil {
			return fmt.Errorf("checking tag: %w", database.MapError(err, table))
		}

		return nil
	})
}

func (s *Store) Restore(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	query := `
		UPDATE tags t
		SET deleted_at = NULL, deleted_by = NULL, restored_at = now(), restored_by = $2,
		    updated_at = now(), updated_by = $2
		WHERE t.id = $3 AND ` + visible + ` AND t.deleted_at IS NOT NULL
	`

	return s.rls.InTx(ctx, caller, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, caller.TenantID, caller.UserID, id)
		if err != nil {
			return fmt.Errorf("restoring tag: %w", database.MapError(err, table))
		}

		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		var restoredAt *time.Time

		err = tx.QueryRowContext(ctx,
			`SELECT t.restored_at FROM tags t WHERE t.id = $3 AND `+visible,
			caller.TenantID, caller.UserID, id,
		).Scan(&restoredAt)
		if err != nil {
			return fmt.Errorf("checking tag: %w", database.MapError(err, table))
		}

		if restoredAt == nil {
			return database.ErrNotDeleted
		}

		return nil
	})
}
