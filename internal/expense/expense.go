package expense

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction says whether money left or entered the firm.
type Direction string

const (
	DirectionExpense Direction = "expense"
	DirectionIncome  Direction = "income"
)

func (d Direction) Valid() bool {
	return d == DirectionExpense || d == DirectionIncome
}

// Expense is a financial line item, optionally tied to a legal case.
type Expense struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Direction   Direction
	Amount      decimal.Decimal
	Date        time.Time
	Category    string
	CaseID      *uuid.UUID
	Description string
	Memo        string
	CreatedAt   time.Time
	CreatedBy   uuid.UUID
	UpdatedAt   time.Time
	UpdatedBy   uuid.UUID
	DeletedAt   *time.Time
	DeletedBy   *uuid.UUID
	RestoredAt  *time.Time
	RestoredBy  *uuid.UUID
}

func (e *Expense) Deleted() bool { return e.DeletedAt != nil }

// Signed returns the amount with income positive and expense negative.
func (e *Expense) Signed() decimal.Decimal {
	if e.Direction == DirectionIncome {
		return e.Amount
	}

	return e.Amount.Neg()
}

// ListFilter predicates are combined with AND. Nil fields are ignored.
// TagIDs matches expenses carrying every listed tag.
type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  *string
	CaseID    *uuid.UUID
	Direction *Direction
	TagIDs    []uuid.UUID
}

// Precedes reports whether a sorts before b in list order:
// date descending, then created_at descending, then id descending.
func Precedes(a, b *Expense) bool {
	return CursorOf(a).after(CursorOf(b))
}

// Cursor marks a position in list order for keyset pagination.
type Cursor struct {
	Date      time.Time
	CreatedAt time.Time
	ID        uuid.UUID
}

func CursorOf(e *Expense) Cursor {
	return Cursor{Date: e.Date, CreatedAt: e.CreatedAt, ID: e.ID}
}

// after reports whether c comes earlier in list order than o,
// i.e. c's sort key is greater.
func (c Cursor) after(o Cursor) bool {
	if !c.Date.Equal(o.Date) {
		return c.Date.After(o.Date)
	}

	if !c.CreatedAt.Equal(o.CreatedAt) {
		return c.CreatedAt.After(o.CreatedAt)
	}

	return bytes.Compare(c.ID[:], o.ID[:]) > 0
}

// Admits reports whether e belongs strictly after the cursor position.
func (c Cursor) Admits(e *Expense) bool {
	return c.after(CursorOf(e))
}

var ErrInvalidCursor = errors.New("invalid cursor")

func (c Cursor) Encode() string {
	raw := strings.Join([]string{
		c.Date.Format(time.DateOnly),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.ID.String(),
	}, "|")

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return Cursor{}, ErrInvalidCursor
	}

	date, err := time.Parse(time.DateOnly, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	created, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	id, err := uuid.Parse(parts[2])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	return Cursor{Date: date, CreatedAt: created, ID: id}, nil
}

// Pageable selects a window of the list. When After is set, Offset is ignored
// and the page starts right after the cursor.
type Pageable struct {
	Limit  int
	Offset int
	After  *Cursor
}

type Page struct {
	Items      []*Expense
	Total      int
	Limit      int
	Offset     int
	NextCursor *Cursor
}

// CategoryTotal aggregates non-deleted expenses per category and direction.
type CategoryTotal struct {
	Category  string
	Direction Direction
	Total     decimal.Decimal
	Count     int
}

// BalanceEntry pairs an expense with the running balance after it.
type BalanceEntry struct {
	Expense *Expense
	Balance decimal.Decimal
}
