package memstore

import (
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
)

// RawExpense returns the stored row, deleted or not, bypassing visibility.
func (db *DB) RawExpense(id uuid.UUID) *expense.Expense {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.expenses[id]
	if !ok {
		return nil
	}

	return cloneExpense(e)
}

func (db *DB) RawTag(id uuid.UUID) *tag.Tag {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tags[id]
	if !ok {
		return nil
	}

	return cloneTag(t)
}

func (db *DB) RawAttachment(id uuid.UUID) *attachment.Attachment {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, ok := db.attachments[id]
	if !ok {
		return nil
	}

	return cloneAttachment(a)
}
