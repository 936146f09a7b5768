// Package memstore keeps expenses, tags, attachments and their links in
// process memory. It enforces the same tenant and owner visibility rules as
// the PostgreSQL policies, through the rls predicates, and serialises every
// operation behind one mutex so each call behaves like a committed
// transaction.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/linking"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
)

var (
	_ expense.Repository    = (*Expenses)(nil)
	_ tag.Repository        = (*Tags)(nil)
	_ attachment.Repository = (*Attachments)(nil)
	_ linking.Repository    = (*Links)(nil)
)

type pair struct {
	left  uuid.UUID
	right uuid.UUID
}

type tagLink struct {
	tenantID  uuid.UUID
	createdAt time.Time
	createdBy uuid.UUID
}

type DB struct {
	mu  sync.Mutex
	now func() time.Time

	// importMu serialises batch imports the way the advisory lock does.
	importMu sync.Mutex

	expenses    map[uuid.UUID]*expense.Expense
	tags        map[uuid.UUID]*tag.Tag
	attachments map[uuid.UUID]*attachment.Attachment

	// expenseTags is keyed by (expense, tag), expenseAttachments by
	// (expense, attachment).
	expenseTags        map[pair]tagLink
	expenseAttachments map[pair]*attachment.Link
}

type Option func(*DB)

func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

func New(opts ...Option) *DB {
	db := &DB{
		now:                time.Now,
		expenses:           make(map[uuid.UUID]*expense.Expense),
		tags:               make(map[uuid.UUID]*tag.Tag),
		attachments:        make(map[uuid.UUID]*attachment.Attachment),
		expenseTags:        make(map[pair]tagLink),
		expenseAttachments: make(map[pair]*attachment.Link),
	}

	for _, opt := range opts {
		opt(db)
	}

	return db
}

func (db *DB) Expenses() *Expenses       { return &Expenses{db: db} }
func (db *DB) Tags() *Tags               { return &Tags{db: db} }
func (db *DB) Attachments() *Attachments { return &Attachments{db: db} }
func (db *DB) Links() *Links             { return &Links{db: db} }

func (db *DB) timestamp() time.Time {
	return db.now().UTC()
}

func ptr[T any](v T) *T {
	return &v
}
