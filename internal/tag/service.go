package tag

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=tag
type Repository interface {
	// Save inserts when t.ID is nil and updates name, normalized name and
	// color otherwise. A normalized-name collision in the same scope fails
	// with a unique ConstraintError.
	Save(ctx context.Context, caller tenant.Caller, t *Tag) error
	FindByID(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Tag, error)
	// FindByScopeAndOwner lists live tags of one scope. ownerID is ignored
	// for TENANT scope.
	FindByScopeAndOwner(ctx context.Context, caller tenant.Caller, scope Scope, ownerID *uuid.UUID) ([]*Tag, error)
	ExistsByNormalizedNameInScope(ctx context.Context, caller tenant.Caller, normalized string, scope Scope, ownerID *uuid.UUID) (bool, error)

	IncrementUsage(ctx context.Context, caller tenant.Caller, id uuid.UUID) error
	DecrementUsage(ctx context.Context, caller tenant.Caller, id uuid.UUID) error
	FindMostUsed(ctx context.Context, caller tenant.Caller, limit int) ([]*Tag, error)
	// Search matches tags whose normalized name starts with prefix.
	Search(ctx context.Context, caller tenant.Caller, prefix string, limit int) ([]*Tag, error)

	SoftDelete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error
	Restore(ctx context.Context, caller tenant.Caller, id uuid.UUID) error
}

const (
	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 50
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name  string
	Color string
	Scope Scope
}

type UpdateParams struct {
	Name  *string
	Color *string
}

// Create adds a tag. PERSONAL tags are owned by the caller.
func (s *Service) Create(ctx context.Context, caller tenant.Caller, params CreateParams) (*Tag, error) {
	scope := params.Scope
	if scope == "" {
		scope = ScopeTenant
	}

	color := params.Color
	if color == "" {
		color = DefaultColor
	}

	t := &Tag{
		TenantID: caller.TenantID,
		Name:     strings.TrimSpace(params.Name),
		Color:    color,
		Scope:    scope,
	}

	if scope == ScopePersonal {
		owner := caller.UserID
		t.OwnerID = &owner
	}

	t.NormalizedName = NormalizeName(t.Name)

	if err := validate(t); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNormalizedNameInScope(ctx, caller, t.NormalizedName, t.Scope, t.OwnerID)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, duplicateName()
	}

	if err := s.repo.Save(ctx, caller, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Get(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Tag, error) {
	return s.repo.FindByID(ctx, caller, id)
}

// List returns the tenant's shared tags followed by the caller's personal tags.
func (s *Service) List(ctx context.Context, caller tenant.Caller) ([]*Tag, error) {
	shared, err := s.repo.FindByScopeAndOwner(ctx, caller, ScopeTenant, nil)
	if err != nil {
		return nil, err
	}

	owner := caller.UserID

	personal, err := s.repo.FindByScopeAndOwner(ctx, caller, ScopePersonal, &owner)
	if err != nil {
		return nil, err
	}

	return append(shared, personal...), nil
}

// Update renames or recolours a tag. Renaming onto another tag's
// normalized name fails with a unique ConstraintError.
func (s *Service) Update(ctx context.Context, caller tenant.Caller, id uuid.UUID, params UpdateParams) (*Tag, error) {
	t, err := s.repo.FindByID(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		normalized := NormalizeName(name)

		if normalized != t.NormalizedName {
			exists, err := s.repo.ExistsByNormalizedNameInScope(ctx, caller, normalized, t.Scope, t.OwnerID)
			if err != nil {
				return nil, err
			}

			if exists {
				return nil, duplicateName()
			}
		}

		t.Name = name
		t.NormalizedName = normalized
	}

	if params.Color != nil {
		t.Color = *params.Color
	}

	if err := validate(t); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, caller, t); err != nil {
		return nil, err
	}

	return t, nil
}

// Delete soft-deletes the tag. Existing expense links are kept.
func (s *Service) Delete(ctx context.Context, caller tenant.Caller, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, caller, id)
}

// Restore brings a deleted tag back. It fails with a unique ConstraintError
// when a live tag has taken the name in the meantime.
func (s *Service) Restore(ctx context.Context, caller tenant.Caller, id uuid.UUID) (*Tag, error) {
	if err := s.repo.Restore(ctx, caller, id); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, caller, id)
}

func (s *Service) MostUsed(ctx context.Context, caller tenant.Caller, limit int) ([]*Tag, error) {
	return s.repo.FindMostUsed(ctx, caller, clampLimit(limit))
}

// Suggest completes a partially typed tag name. An empty query falls back
// to the most used tags.
func (s *Service) Suggest(ctx context.Context, caller tenant.Caller, query string, limit int) ([]*Tag, error) {
	limit = clampLimit(limit)

	prefix := NormalizeName(query)
	if prefix == "" {
		return s.repo.FindMostUsed(ctx, caller, limit)
	}

	return s.repo.Search(ctx, caller, prefix, limit)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSuggestLimit
	case limit > MaxSuggestLimit:
		return MaxSuggestLimit
	}

	return limit
}

func duplicateName() error {
	return database.NewConstraintError(database.ConstraintUnique, "tags", "tags_scope_name_uniq")
}

func validate(t *Tag) error {
	switch {
	case t.NormalizedName == "":
		return database.NewConstraintError(database.ConstraintCheck, "tags", "tags_name_present")
	case !t.Scope.Valid():
		return database.NewConstraintError(database.ConstraintCheck, "tags", "tags_scope_check")
	case (t.Scope == ScopePersonal) != (t.OwnerID != nil):
		return database.NewConstraintError(database.ConstraintCheck, "tags", "tags_owner_matches_scope")
	case !ValidColor(t.Color):
		return database.NewConstraintError(database.ConstraintCheck, "tags", "tags_color_hex")
	}

	return nil
}
