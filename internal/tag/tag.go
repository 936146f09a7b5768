package tag

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Scope decides who can see a tag.
type Scope string

const (
	ScopeTenant   Scope = "TENANT"
	ScopePersonal Scope = "PERSONAL"
)

func (s Scope) Valid() bool {
	return s == ScopeTenant || s == ScopePersonal
}

const DefaultColor = "#6B7280"

type Tag struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Name           string
	NormalizedName string
	Color          string
	Scope          Scope
	// OwnerID is set for PERSONAL tags only.
	OwnerID    *uuid.UUID
	UsageCount int64
	LastUsedAt *time.Time
	CreatedAt  time.Time
	CreatedBy  uuid.UUID
	UpdatedAt  time.Time
	UpdatedBy  uuid.UUID
	DeletedAt  *time.Time
	DeletedBy  *uuid.UUID
	RestoredAt *time.Time
	RestoredBy *uuid.UUID
}

func (t *Tag) Deleted() bool { return t.DeletedAt != nil }

// SameKey reports whether t and o collide on the uniqueness key
// (tenant, normalized name, scope, owner).
func (t *Tag) SameKey(o *Tag) bool {
	if t.TenantID != o.TenantID || t.NormalizedName != o.NormalizedName || t.Scope != o.Scope {
		return false
	}

	return ownerOf(t) == ownerOf(o)
}

func ownerOf(t *Tag) uuid.UUID {
	if t.OwnerID == nil {
		return uuid.Nil
	}

	return *t.OwnerID
}

var fold = cases.Fold()

// NormalizeName maps a display name onto the key used for uniqueness and
// lookups: NFKC, trimmed, inner whitespace collapsed, case folded.
// Full-width "ＴＲＡＶＥＬ" and "travel " both become "travel".
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Join(strings.Fields(s), " ")

	return fold.String(s)
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}
