package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/importer"
	"github.com/MrJamesThe3rd/lexledger/internal/memstore"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	db := memstore.New()
	svc := attachment.NewService(db.Attachments(), attachment.DefaultConfig, attachment.WithClock(func() time.Time { return now }))

	caller := tenant.Caller{TenantID: uuid.New(), UserID: uuid.New()}

	var ids []uuid.UUID

	for i := range 2 {
		a, err := svc.Upload(ctx, caller, attachment.UploadParams{
			FileName:    "scan.pdf",
			FileSize:    int64(100 + i),
			StoragePath: "uploads/scan.pdf",
		})
		require.NoError(t, err)

		ids = append(ids, a.ID)
	}

	var out bytes.Buffer

	n, err := cleanup(ctx, svc, false, &out)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing has expired yet")

	now = now.Add(25 * time.Hour)

	out.Reset()
	n, err = cleanup(ctx, svc, true, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), ids[0].String())

	_, err = svc.Get(ctx, caller, ids[0])
	require.NoError(t, err, "dry run leaves uploads alone")

	out.Reset()
	n, err = cleanup(ctx, svc, false, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "expired 2 of 2")

	for _, id := range ids {
		_, err := svc.Get(ctx, caller, id)
		assert.ErrorIs(t, err, database.ErrNotFound)
	}

	n, err = cleanup(ctx, svc, false, &out)
	require.NoError(t, err)
	assert.Zero(t, n)
}

const ledger = "日付,金額,科目,摘要\n" +
	"2024/01/15,\"12,800\",交通費,東京地裁への出張\n" +
	"2024/01/16,3500,会議費,依頼者との打ち合わせ\n"

func TestImportLedger(t *testing.T) {
	ctx := context.Background()

	db := memstore.New()
	expenseSvc := expense.NewService(db.Expenses())

	importSvc, err := importer.NewService("")
	require.NoError(t, err)

	caller := tenant.Caller{TenantID: uuid.New(), UserID: uuid.New()}

	var out bytes.Buffer

	require.NoError(t, importLedger(ctx, importSvc, expenseSvc, caller, strings.NewReader(ledger), false, &out))
	assert.Contains(t, out.String(), "imported 2 expenses")

	out.Reset()
	err = importLedger(ctx, importSvc, expenseSvc, caller, strings.NewReader(ledger), false, &out)
	require.ErrorIs(t, err, errConflicts)
	assert.Contains(t, out.String(), "0 new rows, 2 conflicts")
	assert.Contains(t, out.String(), "交通費")

	out.Reset()
	require.NoError(t, importLedger(ctx, importSvc, expenseSvc, caller, strings.NewReader(ledger), true, &out))

	page, err := expenseSvc.List(ctx, caller, expense.ListFilter{}, expense.Pageable{})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
}

func TestParseCaller(t *testing.T) {
	tid, uid := uuid.New(), uuid.New()

	c, err := parseCaller(tid.String(), uid.String())
	require.NoError(t, err)
	assert.Equal(t, tenant.Caller{TenantID: tid, UserID: uid}, c)

	_, err = parseCaller("acme", uid.String())
	assert.Error(t, err)

	_, err = parseCaller(uuid.Nil.String(), uid.String())
	assert.ErrorIs(t, err, tenant.ErrUnauthenticated)
}

func TestMigrateList(t *testing.T) {
	var out bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--list", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "0001_schema")
	assert.Contains(t, out.String(), "0002_rls")
}

func TestImportRequiresTenant(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import", "ledger.csv", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	assert.Error(t, cmd.Execute())
}
