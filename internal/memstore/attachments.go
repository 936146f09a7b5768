package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const attachmentsTable = "attachments"

type Attachments struct {
	db *DB
}

func cloneAttachment(a *attachment.Attachment) *attachment.Attachment {
	c := *a
	return &c
}

func checkAttachment(a *attachment.Attachment) error {
	switch {
	case !a.Status.Valid():
		return database.NewConstraintError(database.ConstraintCheck, attachmentsTable, "attachments_status_check")
	case a.FileSize <= 0:
		return database.NewConstraintError(database.ConstraintCheck, attachmentsTable, "attachments_file_size_check")
	case a.Status == attachment.StatusTemporary && a.ExpiresAt == nil:
		return database.NewConstraintError(database.ConstraintCheck, attachmentsTable, "attachments_temporary_expiry")
	case a.Status == attachment.StatusLinked && a.ExpiresAt != nil:
		return database.NewConstraintError(database.ConstraintCheck, attachmentsTable, "attachments_linked_no_expiry")
	}

	return nil
}

// lock returns the stored row, deleted ones included. It must be called
// with db.mu held.
func (db *DB) lock(caller tenant.Caller, id uuid.UUID) (*attachment.Attachment, error) {
	a, ok := db.attachments[id]
	if !ok || !rls.AttachmentVisible(caller, a) {
		return nil, database.ErrNotFound
	}

	return a, nil
}

func (db *DB) linkCount(attachmentID uuid.UUID) int {
	n := 0

	for key := range db.expenseAttachments {
		if key.right == attachmentID {
			n++
		}
	}

	return n
}

func (r *Attachments) Create(_ context.Context, caller tenant.Caller, a *attachment.Attachment) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if err := caller.Owns(a.TenantID); err != nil {
		return err
	}

	if a.Status == "" {
		a.Status = attachment.StatusTemporary
	}

	if err := checkAttachment(a); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a.ID = uuid.New()
	a.TenantID = caller.TenantID
	a.UploadedBy = caller.UserID

	if a.UploadedAt.IsZero() {
		a.UploadedAt = r.db.timestamp()
	}

	r.db.attachments[a.ID] = cloneAttachment(a)

	return nil
}

func (r *Attachments) FindByID(_ context.Context, caller tenant.Caller, id uuid.UUID) (*attachment.Attachment, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, err := r.db.lock(caller, id)
	if err != nil || a.Status == attachment.StatusDeleted {
		return nil, database.ErrNotFound
	}

	return cloneAttachment(a), nil
}

func (r *Attachments) ListByExpense(_ context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*attachment.Attachment, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.db.liveExpense(caller, expenseID); err != nil {
		return nil, nil
	}

	type entry struct {
		a    *attachment.Attachment
		link *attachment.Link
	}

	var entries []entry

	for key, link := range r.db.expenseAttachments {
		if key.left != expenseID {
			continue
		}

		a, ok := r.db.attachments[key.right]
		if !ok || !rls.AttachmentVisible(caller, a) || a.Status == attachment.StatusDeleted {
			continue
		}

		entries = append(entries, entry{a: cloneAttachment(a), link: link})
	}

	slices.SortFunc(entries, func(x, y entry) int {
		if x.link.DisplayOrder != y.link.DisplayOrder {
			return x.link.DisplayOrder - y.link.DisplayOrder
		}

		if c := x.link.LinkedAt.Compare(y.link.LinkedAt); c != 0 {
			return c
		}

		return strings.Compare(x.a.ID.String(), y.a.ID.String())
	})

	out := make([]*attachment.Attachment, len(entries))
	for i, e := range entries {
		out[i] = e.a
	}

	return out, nil
}

func (r *Attachments) LinkToExpense(_ context.Context, caller tenant.Caller, link *attachment.Link) (*attachment.Attachment, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	if err := caller.Owns(link.TenantID); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, err := r.db.lock(caller, link.AttachmentID)
	if err != nil {
		return nil, err
	}

	if err := a.Linkable(link.LinkedAt); err != nil {
		return nil, err
	}

	if _, err := r.db.liveExpense(caller, link.ExpenseID); err != nil {
		return nil, err
	}

	key := pair{link.ExpenseID, link.AttachmentID}
	if _, ok := r.db.expenseAttachments[key]; !ok {
		stored := *link
		stored.TenantID = caller.TenantID
		stored.LinkedBy = caller.UserID
		r.db.expenseAttachments[key] = &stored
	}

	if a.Status == attachment.StatusTemporary {
		a.Status = attachment.StatusLinked
		a.ExpiresAt = nil
		a.LinkedAt = ptr(link.LinkedAt)
	}

	return cloneAttachment(a), nil
}

func (r *Attachments) Unlink(_ context.Context, caller tenant.Caller, expenseID, attachmentID uuid.UUID, revertExpiry *time.Time) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, err := r.db.lock(caller, attachmentID)
	if err != nil {
		return err
	}

	key := pair{expenseID, attachmentID}
	if _, ok := r.db.expenseAttachments[key]; !ok {
		return database.ErrNotFound
	}

	delete(r.db.expenseAttachments, key)

	if a.Status != attachment.StatusLinked || r.db.linkCount(attachmentID) > 0 {
		return nil
	}

	if revertExpiry == nil {
		a.Status = attachment.StatusDeleted
		a.DeletedAt = ptr(r.db.timestamp())
		a.DeletedBy = ptr(caller.UserID)

		return nil
	}

	a.Status = attachment.StatusTemporary
	a.ExpiresAt = ptr(*revertExpiry)
	a.LinkedAt = nil
	a.ClaimedAt = nil

	return nil
}

// Transition covers DELETED and FAILED; LINKED and the revert to TEMPORARY
// go through LinkToExpense and Unlink.
func (r *Attachments) Transition(_ context.Context, caller tenant.Caller, id uuid.UUID, to attachment.Status, reason string) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, err := r.db.lock(caller, id)
	if err != nil {
		return err
	}

	if a.Status == to {
		return nil
	}

	if err := attachment.CheckTransition(a.Status, to); err != nil {
		return err
	}

	switch to {
	case attachment.StatusDeleted:
		a.Status = attachment.StatusDeleted
		a.DeletedAt = ptr(r.db.timestamp())
		a.DeletedBy = ptr(caller.UserID)
	case attachment.StatusFailed:
		a.Status = attachment.StatusFailed
		a.FailureReason = reason
	default:
		return &attachment.TransitionError{From: a.Status, To: to}
	}

	return nil
}

// HardDelete cascades to the attachment's expense links.
func (r *Attachments) HardDelete(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, err := r.db.lock(caller, id); err != nil {
		return err
	}

	for key := range r.db.expenseAttachments {
		if key.right == id {
			delete(r.db.expenseAttachments, key)
		}
	}

	delete(r.db.attachments, id)

	return nil
}

// expired must be called with db.mu held. It ignores tenants, like the
// system scope.
func (db *DB) expired(now time.Time, keep func(*attachment.Attachment) bool) []*attachment.Attachment {
	var out []*attachment.Attachment

	for _, a := range db.attachments {
		if a.Expired(now) && keep(a) {
			out = append(out, a)
		}
	}

	slices.SortFunc(out, func(x, y *attachment.Attachment) int {
		return x.ExpiresAt.Compare(*y.ExpiresAt)
	})

	return out
}

func (r *Attachments) FindExpired(_ context.Context, now time.Time, limit int) ([]*attachment.Attachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	found := r.db.expired(now, func(*attachment.Attachment) bool { return true })
	if len(found) > limit {
		found = found[:limit]
	}

	out := make([]*attachment.Attachment, len(found))
	for i, a := range found {
		out[i] = cloneAttachment(a)
	}

	return out, nil
}

func (r *Attachments) ClaimExpired(_ context.Context, now, staleBefore time.Time, limit int) ([]*attachment.Attachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	found := r.db.expired(now, func(a *attachment.Attachment) bool {
		return a.ClaimedAt == nil || a.ClaimedAt.Before(staleBefore)
	})
	if len(found) > limit {
		found = found[:limit]
	}

	out := make([]*attachment.Attachment, len(found))

	for i, a := range found {
		a.ClaimedAt = ptr(now)
		out[i] = cloneAttachment(a)
	}

	return out, nil
}

func (r *Attachments) ExpireClaimed(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.attachments[id]
	if !ok || a.Status != attachment.StatusTemporary || a.ClaimedAt == nil {
		return database.ErrNotFound
	}

	a.Status = attachment.StatusDeleted
	a.DeletedAt = ptr(r.db.timestamp())

	return nil
}

func (r *Attachments) FindOrphaned(_ context.Context, caller tenant.Caller, before time.Time) ([]*attachment.Attachment, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*attachment.Attachment

	for _, a := range r.db.attachments {
		if !rls.AttachmentVisible(caller, a) || a.Status == attachment.StatusDeleted {
			continue
		}

		if !a.UploadedAt.Before(before) || r.db.linkCount(a.ID) > 0 {
			continue
		}

		out = append(out, cloneAttachment(a))
	}

	slices.SortFunc(out, func(x, y *attachment.Attachment) int {
		return x.UploadedAt.Compare(y.UploadedAt)
	})

	return out, nil
}
