package expense_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

var caller = tenant.Caller{TenantID: uuid.New(), UserID: uuid.New()}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    expense.CreateParams
		setupMock func(m *expense.MockRepository)
		wantKind  database.ConstraintKind
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			params: expense.CreateParams{
				Amount:   decimal.RequireFromString("15000"),
				Date:     time.Date(2026, 4, 1, 15, 30, 0, 0, time.UTC),
				Category: " 会議費 ",
			},
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					Save(gomock.Any(), caller, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ tenant.Caller, e *expense.Expense) error {
						assert.Equal(t, caller.TenantID, e.TenantID)
						assert.Equal(t, expense.DirectionExpense, e.Direction)
						assert.Equal(t, "会議費", e.Category)
						assert.Equal(t, date(2026, 4, 1), e.Date)

						e.ID = uuid.New()
						e.CreatedAt = time.Now()

						return nil
					})
			},
		},
		{
			name: "ZeroAmount",
			params: expense.CreateParams{
				Amount:   decimal.Zero,
				Date:     date(2026, 4, 1),
				Category: "Travel",
			},
			wantKind: database.ConstraintCheck,
			wantErr:  true,
		},
		{
			name: "BlankCategory",
			params: expense.CreateParams{
				Amount:   decimal.NewFromInt(10),
				Date:     date(2026, 4, 1),
				Category: "   ",
			},
			wantKind: database.ConstraintCheck,
			wantErr:  true,
		},
		{
			name: "MissingDate",
			params: expense.CreateParams{
				Amount:   decimal.NewFromInt(10),
				Category: "Travel",
			},
			wantKind: database.ConstraintNotNull,
			wantErr:  true,
		},
		{
			name: "RepoError",
			params: expense.CreateParams{
				Amount:   decimal.NewFromInt(10),
				Date:     date(2026, 4, 1),
				Category: "Travel",
			},
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().
					Save(gomock.Any(), caller, gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := expense.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := expense.NewService(repo)
			got, err := svc.Create(context.Background(), caller, tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				if tt.wantKind != "" {
					var ce *database.ConstraintError
					require.ErrorAs(t, err, &ce)
					assert.Equal(t, tt.wantKind, ce.Kind)
					assert.ErrorIs(t, err, database.ErrConstraintViolation)
				}

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestService_List_ClampsLimit(t *testing.T) {
	type testCase struct {
		name      string
		page      expense.Pageable
		wantLimit int
		wantOff   int
	}

	tests := []testCase{
		{name: "Default", page: expense.Pageable{}, wantLimit: 20},
		{name: "OverMax", page: expense.Pageable{Limit: 500}, wantLimit: 100},
		{name: "NegativeOffset", page: expense.Pageable{Limit: 5, Offset: -3}, wantLimit: 5},
		{name: "Kept", page: expense.Pageable{Limit: 50, Offset: 40}, wantLimit: 50, wantOff: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := expense.NewMockRepository(ctrl)
			repo.EXPECT().
				List(gomock.Any(), caller, expense.ListFilter{}, expense.Pageable{Limit: tt.wantLimit, Offset: tt.wantOff}).
				Return(&expense.Page{Limit: tt.wantLimit}, nil)

			svc := expense.NewService(repo)
			got, err := svc.List(context.Background(), caller, expense.ListFilter{}, tt.page)

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestService_List_CustomLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := expense.NewMockRepository(ctrl)
	repo.EXPECT().
		List(gomock.Any(), caller, gomock.Any(), expense.Pageable{Limit: 10}).
		Return(&expense.Page{}, nil)

	svc := expense.NewService(repo, expense.WithPageLimits(10, 30))
	_, err := svc.List(context.Background(), caller, expense.ListFilter{}, expense.Pageable{})
	require.NoError(t, err)
}

func TestService_Update(t *testing.T) {
	id := uuid.New()
	caseID := uuid.New()

	existing := func() *expense.Expense {
		return &expense.Expense{
			ID:        id,
			TenantID:  caller.TenantID,
			Direction: expense.DirectionExpense,
			Amount:    decimal.NewFromInt(1200),
			Date:      date(2026, 3, 3),
			Category:  "Travel",
			CaseID:    &caseID,
		}
	}

	type testCase struct {
		name      string
		params    expense.UpdateParams
		setupMock func(m *expense.MockRepository)
		check     func(t *testing.T, e *expense.Expense)
		wantErr   error
	}

	newAmount := decimal.RequireFromString("99.50")
	negative := decimal.NewFromInt(-5)
	category := "Filing fees"

	tests := []testCase{
		{
			name:   "ChangesFields",
			params: expense.UpdateParams{Amount: &newAmount, Category: &category, ClearCaseID: true},
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().FindByID(gomock.Any(), caller, id).Return(existing(), nil)
				m.EXPECT().Save(gomock.Any(), caller, gomock.Any()).Return(nil)
			},
			check: func(t *testing.T, e *expense.Expense) {
				assert.True(t, newAmount.Equal(e.Amount))
				assert.Equal(t, "Filing fees", e.Category)
				assert.Nil(t, e.CaseID)
			},
		},
		{
			name:   "NotFound",
			params: expense.UpdateParams{Amount: &newAmount},
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().FindByID(gomock.Any(), caller, id).Return(nil, database.ErrNotFound)
			},
			wantErr: database.ErrNotFound,
		},
		{
			name:   "RejectsNegativeAmount",
			params: expense.UpdateParams{Amount: &negative},
			setupMock: func(m *expense.MockRepository) {
				m.EXPECT().FindByID(gomock.Any(), caller, id).Return(existing(), nil)
			},
			wantErr: database.ErrConstraintViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := expense.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := expense.NewService(repo)
			got, err := svc.Update(context.Background(), caller, id, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestService_Restore(t *testing.T) {
	id := uuid.New()

	t.Run("ReturnsRefreshedExpense", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := expense.NewMockRepository(ctrl)
		now := time.Now()

		gomock.InOrder(
			repo.EXPECT().Restore(gomock.Any(), caller, id).Return(nil),
			repo.EXPECT().FindByID(gomock.Any(), caller, id).
				Return(&expense.Expense{ID: id, RestoredAt: &now}, nil),
		)

		got, err := expense.NewService(repo).Restore(context.Background(), caller, id)
		require.NoError(t, err)
		assert.False(t, got.Deleted())
		assert.NotNil(t, got.RestoredAt)
	})

	t.Run("NeverDeleted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := expense.NewMockRepository(ctrl)
		repo.EXPECT().Restore(gomock.Any(), caller, id).Return(database.ErrNotDeleted)

		_, err := expense.NewService(repo).Restore(context.Background(), caller, id)
		assert.ErrorIs(t, err, database.ErrNotDeleted)
	})
}

func TestRunningBalance(t *testing.T) {
	deletedAt := time.Now()

	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	idC := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	expenses := []*expense.Expense{
		{ID: idB, Direction: expense.DirectionExpense, Amount: decimal.NewFromInt(300), Date: date(2026, 1, 2)},
		{ID: idA, Direction: expense.DirectionIncome, Amount: decimal.NewFromInt(1000), Date: date(2026, 1, 2)},
		{ID: idC, Direction: expense.DirectionExpense, Amount: decimal.NewFromInt(50), Date: date(2026, 1, 1)},
		{ID: uuid.New(), Direction: expense.DirectionExpense, Amount: decimal.NewFromInt(9999), Date: date(2026, 1, 1), DeletedAt: &deletedAt},
	}

	got := expense.RunningBalance(expenses)
	require.Len(t, got, 3)

	assert.Equal(t, idC, got[0].Expense.ID)
	assert.Equal(t, "-50", got[0].Balance.String())
	assert.Equal(t, idA, got[1].Expense.ID)
	assert.Equal(t, "950", got[1].Balance.String())
	assert.Equal(t, idB, got[2].Expense.ID)
	assert.Equal(t, "650", got[2].Balance.String())
}

func TestService_ImportBatch(t *testing.T) {
	params := []expense.CreateParams{
		{Amount: decimal.NewFromInt(15000), Date: date(2026, 4, 1), Category: "会議費", Description: "client lunch"},
		{Amount: decimal.NewFromInt(820), Date: date(2026, 4, 3), Category: "交通費", Description: "taxi"},
	}

	t.Run("NoConflicts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := expense.NewMockRepository(ctrl)
		itx := expense.NewMockImportTx(ctrl)

		repo.EXPECT().BeginImport(gomock.Any(), caller).Return(itx, nil)
		itx.EXPECT().FindDuplicates(gomock.Any(), params).Return(nil, nil)
		itx.EXPECT().CreateExpenses(gomock.Any(), gomock.Len(2)).Return(nil)
		itx.EXPECT().Commit().Return(nil)
		itx.EXPECT().Rollback().Return(nil)

		got, err := expense.NewService(repo).ImportBatch(context.Background(), caller, params)
		require.NoError(t, err)
		assert.Len(t, got.Imported, 2)
		assert.Empty(t, got.Conflicts)
	})

	t.Run("ReportsConflicts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := expense.NewMockRepository(ctrl)
		itx := expense.NewMockImportTx(ctrl)

		existing := &expense.Expense{
			ID:          uuid.New(),
			Direction:   expense.DirectionExpense,
			Amount:      decimal.RequireFromString("15000.00"),
			Date:        date(2026, 4, 1),
			Category:    "会議費",
			Description: "client lunch",
		}

		repo.EXPECT().BeginImport(gomock.Any(), caller).Return(itx, nil)
		itx.EXPECT().FindDuplicates(gomock.Any(), params).Return([]*expense.Expense{existing}, nil)
		itx.EXPECT().Rollback().Return(nil)

		got, err := expense.NewService(repo).ImportBatch(context.Background(), caller, params)
		require.NoError(t, err)
		assert.Empty(t, got.Imported)
		require.Len(t, got.Conflicts, 1)
		assert.Equal(t, existing, got.Conflicts[0].Existing)
		require.Len(t, got.New, 1)
		assert.Equal(t, "taxi", got.New[0].Description)
	})

	t.Run("InvalidRow", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := expense.NewMockRepository(ctrl)

		_, err := expense.NewService(repo).ImportBatch(context.Background(), caller, []expense.CreateParams{
			{Amount: decimal.NewFromInt(1), Date: date(2026, 1, 1)},
		})
		assert.ErrorIs(t, err, database.ErrConstraintViolation)
		assert.Contains(t, err.Error(), "row 1")
	})

	t.Run("Empty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		got, err := expense.NewService(expense.NewMockRepository(ctrl)).ImportBatch(context.Background(), caller, nil)
		require.NoError(t, err)
		assert.Empty(t, got.Imported)
	})
}

func TestCursor_RoundTrip(t *testing.T) {
	c := expense.Cursor{
		Date:      date(2026, 5, 1),
		CreatedAt: time.Date(2026, 5, 1, 9, 30, 0, 123456000, time.UTC),
		ID:        uuid.New(),
	}

	got, err := expense.DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.Date.Equal(got.Date))
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.ID, got.ID)

	_, err = expense.DecodeCursor("not a cursor")
	assert.ErrorIs(t, err, expense.ErrInvalidCursor)
}

func TestPrecedes(t *testing.T) {
	older := &expense.Expense{ID: uuid.New(), Date: date(2026, 1, 1), CreatedAt: time.Now()}
	newer := &expense.Expense{ID: uuid.New(), Date: date(2026, 1, 2), CreatedAt: time.Now().Add(-time.Hour)}

	assert.True(t, expense.Precedes(newer, older))
	assert.False(t, expense.Precedes(older, newer))
	assert.True(t, expense.CursorOf(newer).Admits(older))
}
