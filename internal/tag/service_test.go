package tag_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

var caller = tenant.Caller{TenantID: uuid.New(), UserID: uuid.New()}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Travel", want: "travel"},
		{in: "travel ", want: "travel"},
		{in: "  Client   Meals ", want: "client meals"},
		{in: "ＴＲＡＶＥＬ", want: "travel"},
		{in: "会議費", want: "会議費"},
		{in: "ｶｲｷﾞ", want: "カイギ"},
		{in: "Straße", want: "strasse"},
		{in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tag.NormalizeName(tt.in))
		})
	}
}

func TestValidColor(t *testing.T) {
	assert.True(t, tag.ValidColor("#6B7280"))
	assert.True(t, tag.ValidColor("#abcdef"))
	assert.False(t, tag.ValidColor("6B7280"))
	assert.False(t, tag.ValidColor("#6B728"))
	assert.False(t, tag.ValidColor("#GGGGGG"))
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    tag.CreateParams
		setupMock func(m *tag.MockRepository)
		check     func(t *testing.T, got *tag.Tag)
		wantKind  database.ConstraintKind
	}

	tests := []testCase{
		{
			name:   "TenantDefaults",
			params: tag.CreateParams{Name: " Travel "},
			setupMock: func(m *tag.MockRepository) {
				m.EXPECT().
					ExistsByNormalizedNameInScope(gomock.Any(), caller, "travel", tag.ScopeTenant, (*uuid.UUID)(nil)).
					Return(false, nil)
				m.EXPECT().
					Save(gomock.Any(), caller, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ tenant.Caller, tg *tag.Tag) error {
						tg.ID = uuid.New()
						return nil
					})
			},
			check: func(t *testing.T, got *tag.Tag) {
				assert.Equal(t, "Travel", got.Name)
				assert.Equal(t, "travel", got.NormalizedName)
				assert.Equal(t, tag.DefaultColor, got.Color)
				assert.Equal(t, tag.ScopeTenant, got.Scope)
				assert.Nil(t, got.OwnerID)
			},
		},
		{
			name:   "PersonalOwnedByCaller",
			params: tag.CreateParams{Name: "Follow up", Scope: tag.ScopePersonal, Color: "#ff0000"},
			setupMock: func(m *tag.MockRepository) {
				m.EXPECT().
					ExistsByNormalizedNameInScope(gomock.Any(), caller, "follow up", tag.ScopePersonal, gomock.Any()).
					Return(false, nil)
				m.EXPECT().Save(gomock.Any(), caller, gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, got *tag.Tag) {
				require.NotNil(t, got.OwnerID)
				assert.Equal(t, caller.UserID, *got.OwnerID)
			},
		},
		{
			name:   "DuplicateName",
			params: tag.CreateParams{Name: "会議費"},
			setupMock: func(m *tag.MockRepository) {
				m.EXPECT().
					ExistsByNormalizedNameInScope(gomock.Any(), caller, "会議費", tag.ScopeTenant, gomock.Any()).
					Return(true, nil)
			},
			wantKind: database.ConstraintUnique,
		},
		{
			name:     "BlankName",
			params:   tag.CreateParams{Name: "   "},
			wantKind: database.ConstraintCheck,
		},
		{
			name:     "BadColor",
			params:   tag.CreateParams{Name: "x", Color: "red"},
			wantKind: database.ConstraintCheck,
		},
		{
			name:     "UnknownScope",
			params:   tag.CreateParams{Name: "x", Scope: "GLOBAL"},
			wantKind: database.ConstraintCheck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := tag.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := tag.NewService(repo).Create(context.Background(), caller, tt.params)

			if tt.wantKind != "" {
				var ce *database.ConstraintError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, tt.wantKind, ce.Kind)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestService_Update(t *testing.T) {
	id := uuid.New()

	existing := func() *tag.Tag {
		return &tag.Tag{ID: id, TenantID: caller.TenantID, Name: "Travel", NormalizedName: "travel", Color: tag.DefaultColor, Scope: tag.ScopeTenant}
	}

	t.Run("CaseOnlyRenameSkipsUniquenessCheck", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := tag.NewMockRepository(ctrl)
		repo.EXPECT().FindByID(gomock.Any(), caller, id).Return(existing(), nil)
		repo.EXPECT().Save(gomock.Any(), caller, gomock.Any()).Return(nil)

		name := "TRAVEL"
		got, err := tag.NewService(repo).Update(context.Background(), caller, id, tag.UpdateParams{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "TRAVEL", got.Name)
		assert.Equal(t, "travel", got.NormalizedName)
	})

	t.Run("RenameCollides", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := tag.NewMockRepository(ctrl)
		repo.EXPECT().FindByID(gomock.Any(), caller, id).Return(existing(), nil)
		repo.EXPECT().
			ExistsByNormalizedNameInScope(gomock.Any(), caller, "meals", tag.ScopeTenant, (*uuid.UUID)(nil)).
			Return(true, nil)

		name := "Meals"
		_, err := tag.NewService(repo).Update(context.Background(), caller, id, tag.UpdateParams{Name: &name})
		assert.ErrorIs(t, err, database.ErrConstraintViolation)
	})

	t.Run("Recolor", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := tag.NewMockRepository(ctrl)
		repo.EXPECT().FindByID(gomock.Any(), caller, id).Return(existing(), nil)
		repo.EXPECT().Save(gomock.Any(), caller, gomock.Any()).Return(nil)

		color := "#112233"
		got, err := tag.NewService(repo).Update(context.Background(), caller, id, tag.UpdateParams{Color: &color})
		require.NoError(t, err)
		assert.Equal(t, "#112233", got.Color)
	})
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	shared := &tag.Tag{ID: uuid.New(), Scope: tag.ScopeTenant}
	mine := &tag.Tag{ID: uuid.New(), Scope: tag.ScopePersonal}

	repo := tag.NewMockRepository(ctrl)
	repo.EXPECT().FindByScopeAndOwner(gomock.Any(), caller, tag.ScopeTenant, (*uuid.UUID)(nil)).Return([]*tag.Tag{shared}, nil)
	repo.EXPECT().FindByScopeAndOwner(gomock.Any(), caller, tag.ScopePersonal, &caller.UserID).Return([]*tag.Tag{mine}, nil)

	got, err := tag.NewService(repo).List(context.Background(), caller)
	require.NoError(t, err)
	assert.Equal(t, []*tag.Tag{shared, mine}, got)
}

func TestService_Suggest(t *testing.T) {
	type testCase struct {
		name      string
		query     string
		limit     int
		setupMock func(m *tag.MockRepository)
	}

	tests := []testCase{
		{
			name:  "EmptyQueryFallsBackToMostUsed",
			query: "  ",
			setupMock: func(m *tag.MockRepository) {
				m.EXPECT().FindMostUsed(gomock.Any(), caller, tag.DefaultSuggestLimit).Return(nil, nil)
			},
		},
		{
			name:  "PrefixIsNormalized",
			query: "ＴＲ",
			limit: 500,
			setupMock: func(m *tag.MockRepository) {
				m.EXPECT().Search(gomock.Any(), caller, "tr", tag.MaxSuggestLimit).Return(nil, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := tag.NewMockRepository(ctrl)
			tt.setupMock(repo)

			_, err := tag.NewService(repo).Suggest(context.Background(), caller, tt.query, tt.limit)
			require.NoError(t, err)
		})
	}
}

func TestTag_SameKey(t *testing.T) {
	tenantID := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	a := &tag.Tag{TenantID: tenantID, NormalizedName: "travel", Scope: tag.ScopePersonal, OwnerID: &alice}
	b := &tag.Tag{TenantID: tenantID, NormalizedName: "travel", Scope: tag.ScopePersonal, OwnerID: &bob}
	c := &tag.Tag{TenantID: tenantID, NormalizedName: "travel", Scope: tag.ScopePersonal, OwnerID: &alice}
	shared := &tag.Tag{TenantID: tenantID, NormalizedName: "travel", Scope: tag.ScopeTenant}

	assert.False(t, a.SameKey(b))
	assert.True(t, a.SameKey(c))
	assert.False(t, a.SameKey(shared))
}
