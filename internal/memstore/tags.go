package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/rls"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const tagsTable = "tags"

type Tags struct {
	db *DB
}

func cloneTag(t *tag.Tag) *tag.Tag {
	c := *t
	return &c
}

func sameOwner(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

// collides must be called with db.mu held. It mirrors the partial unique
// index on live tags.
func (db *DB) collides(t *tag.Tag) bool {
	for _, o := range db.tags {
		if o.ID == t.ID || o.Deleted() {
			continue
		}

		if o.TenantID == t.TenantID && o.NormalizedName == t.NormalizedName &&
			o.Scope == t.Scope && sameOwner(o.OwnerID, t.OwnerID) {
			return true
		}
	}

	return false
}

func duplicateTag() error {
	return database.NewConstraintError(database.ConstraintUnique, tagsTable, "tags_scope_name_uniq")
}

func checkTag(t *tag.Tag) error {
	switch {
	case !t.Scope.Valid():
		return database.NewConstraintError(database.ConstraintCheck, tagsTable, "tags_scope_check")
	case (t.Scope == tag.ScopePersonal) != (t.OwnerID != nil):
		return database.NewConstraintError(database.ConstraintCheck, tagsTable, "tags_owner_matches_scope")
	case t.NormalizedName == "":
		return database.NewConstraintError(database.ConstraintCheck, tagsTable, "tags_name_present")
	case !tag.ValidColor(t.Color):
		return database.NewConstraintError(database.ConstraintCheck, tagsTable, "tags_color_hex")
	}

	return nil
}

// visibleTag must be called with db.mu held.
func (db *DB) visibleTag(caller tenant.Caller, id uuid.UUID) (*tag.Tag, bool) {
	t, ok := db.tags[id]
	if !ok || !rls.TagVisible(caller, t) {
		return nil, false
	}

	return t, true
}

func (r *Tags) Save(_ context.Context, caller tenant.Caller, t *tag.Tag) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	if err := caller.Owns(t.TenantID); err != nil {
		return err
	}

	if err := checkTag(t); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.timestamp()

	if t.ID == uuid.Nil {
		t.TenantID = caller.TenantID

		// Rows failing the policy's WITH CHECK are reported as not found.
		if !rls.TagVisible(caller, t) {
			return database.ErrNotFound
		}

		if r.db.collides(t) {
			return duplicateTag()
		}

		t.ID = uuid.New()
		t.UsageCount = 0
		t.CreatedAt, t.UpdatedAt = now, now
		t.CreatedBy, t.UpdatedBy = caller.UserID, caller.UserID

		r.db.tags[t.ID] = cloneTag(t)

		return nil
	}

	stored, ok := r.db.visibleTag(caller, t.ID)
	if !ok || stored.Deleted() {
		return database.ErrNotFound
	}

	candidate := cloneTag(stored)
	candidate.Name = t.Name
	candidate.NormalizedName = t.NormalizedName
	candidate.Color = t.Color

	if r.db.collides(candidate) {
		return duplicateTag()
	}

	candidate.UpdatedAt, candidate.UpdatedBy = now, caller.UserID
	r.db.tags[t.ID] = candidate

	t.UpdatedAt, t.UpdatedBy = now, caller.UserID

	return nil
}

func (r *Tags) FindByID(_ context.Context, caller tenant.Caller, id uuid.UUID) (*tag.Tag, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.visibleTag(caller, id)
	if !ok || t.Deleted() {
		return nil, database.ErrNotFound
	}

	return cloneTag(t), nil
}

// liveTags must be called with db.mu held.
func (db *DB) liveTags(caller tenant.Caller, keep func(*tag.Tag) bool) []*tag.Tag {
	var out []*tag.Tag

	for _, t := range db.tags {
		if !rls.TagVisible(caller, t) || t.Deleted() || !keep(t) {
			continue
		}

		out = append(out, cloneTag(t))
	}

	return out
}

func (r *Tags) FindByScopeAndOwner(_ context.Context, caller tenant.Caller, scope tag.Scope, ownerID *uuid.UUID) ([]*tag.Tag, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	owner := caller.UserID
	if ownerID != nil {
		owner = *ownerID
	}

	r.db.mu.Lock()
	found := r.db.liveTags(caller, func(t *tag.Tag) bool {
		if t.Scope != scope {
			return false
		}

		return scope == tag.ScopeTenant || (t.OwnerID != nil && *t.OwnerID == owner)
	})
	r.db.mu.Unlock()

	slices.SortFunc(found, func(a, b *tag.Tag) int {
		return strings.Compare(a.NormalizedName, b.NormalizedName)
	})

	return found, nil
}

func (r *Tags) ExistsByNormalizedNameInScope(_ context.Context, caller tenant.Caller, normalized string, scope tag.Scope, ownerID *uuid.UUID) (bool, error) {
	if err := caller.Validate(); err != nil {
		return false, err
	}

	r.db.mu.Lock()
	found := r.db.liveTags(caller, func(t *tag.Tag) bool {
		return t.NormalizedName == normalized && t.Scope == scope && sameOwner(t.OwnerID, ownerID)
	})
	r.db.mu.Unlock()

	return len(found) > 0, nil
}

// increment and decrement must be called with db.mu held.
func (db *DB) increment(caller tenant.Caller, id uuid.UUID) error {
	t, ok := db.visibleTag(caller, id)
	if !ok || t.Deleted() {
		return database.ErrNotFound
	}

	t.UsageCount++
	t.LastUsedAt = ptr(db.timestamp())

	return nil
}

func (db *DB) decrement(caller tenant.Caller, id uuid.UUID) error {
	t, ok := db.visibleTag(caller, id)
	if !ok {
		return database.ErrNotFound
	}

	if t.UsageCount > 0 {
		t.UsageCount--
	}

	return nil
}

func (r *Tags) IncrementUsage(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.increment(caller, id)
}

func (r *Tags) DecrementUsage(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.decrement(caller, id)
}

func byUsage(a, b *tag.Tag) int {
	if c := cmp.Compare(b.UsageCount, a.UsageCount); c != 0 {
		return c
	}

	switch {
	case a.LastUsedAt != nil && b.LastUsedAt == nil:
		return -1
	case a.LastUsedAt == nil && b.LastUsedAt != nil:
		return 1
	case a.LastUsedAt != nil && b.LastUsedAt != nil:
		if c := b.LastUsedAt.Compare(*a.LastUsedAt); c != 0 {
			return c
		}
	}

	return strings.Compare(a.NormalizedName, b.NormalizedName)
}

func head(tags []*tag.Tag, limit int) []*tag.Tag {
	if limit >= 0 && len(tags) > limit {
		return tags[:limit]
	}

	return tags
}

func (r *Tags) FindMostUsed(_ context.Context, caller tenant.Caller, limit int) ([]*tag.Tag, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	found := r.db.liveTags(caller, func(*tag.Tag) bool { return true })
	r.db.mu.Unlock()

	slices.SortFunc(found, byUsage)

	return head(found, limit), nil
}

func (r *Tags) Search(_ context.Context, caller tenant.Caller, prefix string, limit int) ([]*tag.Tag, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}

	r.db.mu.Lock()
	found := r.db.liveTags(caller, func(t *tag.Tag) bool {
		return strings.HasPrefix(t.NormalizedName, prefix)
	})
	r.db.mu.Unlock()

	slices.SortFunc(found, func(a, b *tag.Tag) int {
		return cmp.Or(cmp.Compare(b.UsageCount, a.UsageCount), strings.Compare(a.NormalizedName, b.NormalizedName))
	})

	return head(found, limit), nil
}

func (r *Tags) SoftDelete(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.visibleTag(caller, id)
	if !ok {
		return database.ErrNotFound
	}

	if t.Deleted() {
		return nil
	}

	now := r.db.timestamp()
	t.DeletedAt = ptr(now)
	t.DeletedBy = ptr(caller.UserID)
	t.UpdatedAt, t.UpdatedBy = now, caller.UserID

	return nil
}

// Restore fails with a unique ConstraintError when a live tag has taken the
// name in the meantime.
func (r *Tags) Restore(_ context.Context, caller tenant.Caller, id uuid.UUID) error {
	if err := caller.Validate(); err != nil {
		return err
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.visibleTag(caller, id)
	if !ok {
		return database.ErrNotFound
	}

	if !t.Deleted() {
		if t.RestoredAt == nil {
			return database.ErrNotDeleted
		}

		return nil
	}

	if r.db.collides(t) {
		return duplicateTag()
	}

	now := r.db.timestamp()
	t.DeletedAt, t.DeletedBy = nil, nil
	t.RestoredAt = ptr(now)
	t.RestoredBy = ptr(caller.UserID)
	t.UpdatedAt, t.UpdatedBy = now, caller.UserID

	return nil
}
