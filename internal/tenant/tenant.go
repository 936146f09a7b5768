package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTenantMismatch  = errors.New("tenant mismatch")
)

// Caller identifies who is performing a data operation. It is passed
// explicitly to every repository call; nothing below the HTTP edge reads
// it from ambient state.
type Caller struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

func (c Caller) Validate() error {
	if c.TenantID == uuid.Nil || c.UserID == uuid.Nil {
		return ErrUnauthenticated
	}

	return nil
}

// MismatchError is returned when a resource's tenant differs from the caller's.
// It matches both ErrTenantMismatch and database.ErrNotFound so callers see
// a plain "not found".
type MismatchError struct {
	Expected uuid.UUID
	Got      uuid.UUID
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("tenant mismatch: caller tenant %s, resource tenant %s", e.Expected, e.Got)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrTenantMismatch || target == database.ErrNotFound
}

// Owns checks that resourceTenant belongs to the caller. A nil resource
// tenant is accepted; the caller's tenant is assigned by the store.
func (c Caller) Owns(resourceTenant uuid.UUID) error {
	if resourceTenant == uuid.Nil || resourceTenant == c.TenantID {
		return nil
	}

	slog.Error("tenant mismatch on data access",
		"caller_tenant", c.TenantID,
		"resource_tenant", resourceTenant,
		"user", c.UserID,
	)

	return &MismatchError{Expected: c.TenantID, Got: resourceTenant}
}

type ctxKey struct{}

// NewContext stores the caller on a request context. Only the HTTP layer
// uses this; handlers pull the caller out once and pass it on explicitly.
func NewContext(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (Caller, error) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	if !ok {
		return Caller{}, ErrUnauthenticated
	}

	return c, c.Validate()
}
