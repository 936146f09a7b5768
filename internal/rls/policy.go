package rls

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

// The predicates below evaluate the same rules as the policies in
// 0002_rls.sql, for repositories that do not run on PostgreSQL.

// ExpenseVisible ignores deletion; soft-deleted rows stay readable for restore.
func ExpenseVisible(c tenant.Caller, e *expense.Expense) bool {
	return e.TenantID == c.TenantID
}

// TagVisible admits tenant tags and the caller's own personal tags.
func TagVisible(c tenant.Caller, t *tag.Tag) bool {
	if t.TenantID != c.TenantID {
		return false
	}

	if t.Scope == tag.ScopeTenant {
		return true
	}

	return t.OwnerID != nil && *t.OwnerID == c.UserID
}

// AttachmentVisible hides other users' TEMPORARY uploads.
func AttachmentVisible(c tenant.Caller, a *attachment.Attachment) bool {
	if a.TenantID != c.TenantID {
		return false
	}

	return a.Status != attachment.StatusTemporary || a.UploadedBy == c.UserID
}

// CanWrite is the WITH CHECK half of every policy: rows may only be written
// into the caller's tenant.
func CanWrite(c tenant.Caller, tenantID uuid.UUID) bool {
	return c.Validate() == nil && tenantID == c.TenantID
}
