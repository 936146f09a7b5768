package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

// Links maintains expense-tag links and the usage counters they drive.
type Links struct {
	db *DB
}

// AttachTags checks every tag before linking any, so a missing tag leaves
// the expense untouched.
func (r *Links) AttachTags(_ context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	if err := caller.Validate(); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkAttach(caller, expenseID, tagIDs); err != nil {
		return 0, err
	}

	return r.db.attach(caller, expenseID, tagIDs)
}

func (r *Links) DetachTags(_ context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	if err := caller.Validate(); err != nil {
		return 0, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.detach(caller, expenseID, tagIDs)
}

// ReplaceTags checks the added tags before removing anything.
func (r *Links) ReplaceTags(_ context.Context, caller tenant.Caller, expenseID uuid.UUID, add, remove []uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkAttach(caller, expenseID, add); err != nil {
		return err
	}

	if _, err := r.db.detach(caller, expenseID, remove); err != nil {
		return err
	}

	_, err := r.db.attach(caller, expenseID, add)

	return err
}

// checkAttach, attach and detach must be called with db.mu held.
func (db *DB) checkAttach(caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) error {
	if _, err := db.liveExpense(caller, expenseID); err != nil {
		return err
	}

	for _, id := range tagIDs {
		t, ok := db.visibleTag(caller, id)
		if !ok || t.Deleted() {
			return database.ErrNotFound
		}
	}

	return nil
}

func (db *DB) attach(caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	created := 0

	for _, id := range tagIDs {
		key := pair{expenseID, id}
		if _, ok := db.expenseTags[key]; ok {
			continue
		}

		db.expenseTags[key] = tagLink{tenantID: caller.TenantID, createdAt: db.timestamp(), createdBy: caller.UserID}

		if err := db.increment(caller, id); err != nil {
			return created, err
		}

		created++
	}

	return created, nil
}

func (db *DB) detach(caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error) {
	removed := 0

	for _, id := range tagIDs {
		key := pair{expenseID, id}

		link, ok := db.expenseTags[key]
		if !ok || link.tenantID != caller.TenantID {
			continue
		}

		if _, visible := db.visibleTag(caller, id); !visible {
			continue
		}

		delete(db.expenseTags, key)

		if err := db.decrement(caller, id); err != nil {
			return removed, err
		}

		removed++
	}

	return removed, nil
}

func (r *Links) TagsForExpense(_ context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*tag.Tag, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*tag.Tag

	for key, link := range r.db.expenseTags {
		if key.left != expenseID || link.tenantID != caller.TenantID {
			continue
		}

		t, ok := r.db.visibleTag(caller, key.right)
		if !ok || t.Deleted() {
			continue
		}

		out = append(out, cloneTag(t))
	}

	slices.SortFunc(out, func(a, b *tag.Tag) int {
		return strings.Compare(a.NormalizedName, b.NormalizedName)
	})

	return out, nil
}
