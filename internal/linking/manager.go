// Package linking maintains expense-tag links together with the tag usage
// counters derived from them.
package linking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

//go:generate mockgen -source=manager.go -destination=repository_mock.go -package=linking
type Repository interface {
	// AttachTags links each tag to the expense and increments usage for every
	// link it creates, in one transaction. Existing links are left alone.
	// It returns the number of links created.
	AttachTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error)
	// DetachTags removes links and decrements usage, floored at zero, for
	// every link it removes. It returns the number of links removed.
	DetachTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) (int, error)
	// ReplaceTags removes and adds links in one transaction with the same
	// checks and counter updates as DetachTags and AttachTags. When any
	// added tag is refused nothing changes.
	ReplaceTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, add, remove []uuid.UUID) error
	TagsForExpense(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*tag.Tag, error)
}

type Manager struct {
	repo Repository
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) Attach(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs ...uuid.UUID) error {
	ids := dedupe(tagIDs)
	if len(ids) == 0 {
		return nil
	}

	if _, err := m.repo.AttachTags(ctx, caller, expenseID, ids); err != nil {
		return fmt.Errorf("attaching tags: %w", err)
	}

	return nil
}

func (m *Manager) Detach(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs ...uuid.UUID) error {
	ids := dedupe(tagIDs)
	if len(ids) == 0 {
		return nil
	}

	if _, err := m.repo.DetachTags(ctx, caller, expenseID, ids); err != nil {
		return fmt.Errorf("detaching tags: %w", err)
	}

	return nil
}

// SetTags makes the expense carry exactly tagIDs, touching only the links
// that differ.
func (m *Manager) SetTags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID, tagIDs []uuid.UUID) error {
	current, err := m.repo.TagsForExpense(ctx, caller, expenseID)
	if err != nil {
		return err
	}

	want := make(map[uuid.UUID]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		want[id] = struct{}{}
	}

	have := make(map[uuid.UUID]struct{}, len(current))

	var remove []uuid.UUID

	for _, t := range current {
		have[t.ID] = struct{}{}

		if _, ok := want[t.ID]; !ok {
			remove = append(remove, t.ID)
		}
	}

	var add []uuid.UUID

	for _, id := range dedupe(tagIDs) {
		if _, ok := have[id]; !ok {
			add = append(add, id)
		}
	}

	if len(add) == 0 && len(remove) == 0 {
		return nil
	}

	if err := m.repo.ReplaceTags(ctx, caller, expenseID, add, remove); err != nil {
		return fmt.Errorf("replacing tags: %w", err)
	}

	return nil
}

func (m *Manager) Tags(ctx context.Context, caller tenant.Caller, expenseID uuid.UUID) ([]*tag.Tag, error) {
	return m.repo.TagsForExpense(ctx, caller, expenseID)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
