package http_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/lexledger/internal/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/expense"
	api "github.com/MrJamesThe3rd/lexledger/internal/http"
	attachmenthttp "github.com/MrJamesThe3rd/lexledger/internal/http/attachment"
	expensehttp "github.com/MrJamesThe3rd/lexledger/internal/http/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/http/importcsv"
	taghttp "github.com/MrJamesThe3rd/lexledger/internal/http/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/importer"
	"github.com/MrJamesThe3rd/lexledger/internal/linking"
	"github.com/MrJamesThe3rd/lexledger/internal/memstore"
	"github.com/MrJamesThe3rd/lexledger/internal/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const secret = "router-test-secret"

type client struct {
	t      *testing.T
	server http.Handler
	token  string
}

func newServer(t *testing.T) http.Handler {
	t.Helper()

	db := memstore.New()

	expenseSvc := expense.NewService(db.Expenses())
	attachmentSvc := attachment.NewService(db.Attachments(), attachment.DefaultConfig)

	importSvc, err := importer.NewService("")
	require.NoError(t, err)

	return api.New(
		tenant.NewResolver(secret),
		api.Options{AllowedOrigins: []string{"*"}},
		expensehttp.NewHandler(expenseSvc, linking.NewManager(db.Links()), attachmentSvc),
		taghttp.NewHandler(tag.NewService(db.Tags())),
		attachmenthttp.NewHandler(attachmentSvc),
		importcsv.NewHandler(importSvc, expenseSvc),
	)
}

func newClient(t *testing.T, server http.Handler, tenantID uuid.UUID) *client {
	t.Helper()

	claims := tenant.Claims{
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return &client{t: t, server: server, token: token}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+c.token)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	c.server.ServeHTTP(rec, req)

	return rec
}

func (c *client) upload(path, content string) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "経費.csv")
	require.NoError(c.t, err)

	_, err = fw.Write([]byte(content))
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	c.server.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

type idBody struct {
	ID uuid.UUID `json:"id"`
}

func (c *client) createExpense(category string) uuid.UUID {
	c.t.Helper()

	rec := c.do(http.MethodPost, "/api/v1/expenses/", map[string]any{
		"direction":   "expense",
		"amount":      "12800",
		"date":        "2024-01-15",
		"category":    category,
		"description": "東京地裁への出張",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[idBody](c.t, rec).ID
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	server := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses/", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/expenses/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_ExpenseIsolatedByTenant(t *testing.T) {
	server := newServer(t)
	alice := newClient(t, server, uuid.New())
	mallory := newClient(t, server, uuid.New())

	id := alice.createExpense("交通費")

	rec := alice.do(http.MethodGet, "/api/v1/expenses/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]any](t, rec)
	assert.Equal(t, "交通費", got["category"])
	assert.Equal(t, "2024-01-15", got["date"])

	assert.Equal(t, http.StatusNotFound, mallory.do(http.MethodGet, "/api/v1/expenses/"+id.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, mallory.do(http.MethodDelete, "/api/v1/expenses/"+id.String(), nil).Code)

	page := decode[map[string]any](t, mallory.do(http.MethodGet, "/api/v1/expenses/", nil))
	assert.EqualValues(t, 0, page["total"])
}

func TestRouter_ExpenseValidation(t *testing.T) {
	c := newClient(t, newServer(t), uuid.New())

	rec := c.do(http.MethodPost, "/api/v1/expenses/", map[string]any{
		"direction": "expense",
		"amount":    "-5",
		"date":      "2024-01-15",
		"category":  "交通費",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/expenses/", map[string]any{"date": "15/01/2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/v1/expenses/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/v1/expenses/?cursor=bm9wZQ", nil).Code)
}

func TestRouter_SoftDeleteAndRestore(t *testing.T) {
	c := newClient(t, newServer(t), uuid.New())
	id := c.createExpense("会議費")
	path := "/api/v1/expenses/" + id.String()

	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, path+"/restore", nil).Code)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, path, nil).Code)

	rec := c.do(http.MethodPost, path+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[map[string]any](t, rec)["restored_at"])

	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, path+"/restore", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, path, nil).Code)
}

func TestRouter_TagsOnExpense(t *testing.T) {
	c := newClient(t, newServer(t), uuid.New())
	expenseID := c.createExpense("交通費")
	c.createExpense("通信費")

	rec := c.do(http.MethodPost, "/api/v1/tags/", map[string]any{"name": "出張", "scope": "TENANT"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tagID := decode[idBody](t, rec).ID

	rec = c.do(http.MethodPost, "/api/v1/tags/", map[string]any{"name": " 出張 ", "scope": "TENANT"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPut, "/api/v1/expenses/"+expenseID.String()+"/tags", map[string]any{
		"tag_ids": []uuid.UUID{tagID, tagID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]idBody](t, rec), 1)

	page := decode[map[string]any](t, c.do(http.MethodGet, "/api/v1/expenses/?tag="+tagID.String(), nil))
	assert.EqualValues(t, 1, page["total"])

	rec = c.do(http.MethodGet, "/api/v1/tags/"+tagID.String(), nil)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["usage_count"])

	rec = c.do(http.MethodGet, "/api/v1/tags/suggest?q="+url.QueryEscape("出"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]idBody](t, rec), 1)

	assert.Equal(t, http.StatusNoContent,
		c.do(http.MethodDelete, "/api/v1/expenses/"+expenseID.String()+"/tags/"+tagID.String(), nil).Code)

	rec = c.do(http.MethodGet, "/api/v1/tags/"+tagID.String(), nil)
	assert.EqualValues(t, 0, decode[map[string]any](t, rec)["usage_count"])
}

func TestRouter_AttachmentLifecycle(t *testing.T) {
	c := newClient(t, newServer(t), uuid.New())
	expenseID := c.createExpense("交通費")

	rec := c.do(http.MethodPost, "/api/v1/attachments/", map[string]any{
		"file_name":     "receipt-0001.pdf",
		"original_name": "領収書.pdf",
		"file_size":     2048,
		"mime_type":     "application/pdf",
		"storage_path":  "tenants/receipts/receipt-0001.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	uploaded := decode[map[string]any](t, rec)
	assert.Equal(t, "TEMPORARY", uploaded["status"])

	attachmentID := uploaded["id"].(string)
	expensePath := "/api/v1/expenses/" + expenseID.String()

	rec = c.do(http.MethodPost, expensePath+"/attachments", map[string]any{"attachment_id": attachmentID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "LINKED", decode[map[string]any](t, rec)["status"])

	assert.Len(t, decode[[]idBody](t, c.do(http.MethodGet, expensePath+"/attachments", nil)), 1)

	assert.Equal(t, http.StatusConflict, c.do(http.MethodDelete, expensePath+"/purge", nil).Code)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/v1/attachments/"+attachmentID, nil).Code)

	rec = c.do(http.MethodPost, expensePath+"/attachments", map[string]any{"attachment_id": attachmentID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_Import(t *testing.T) {
	c := newClient(t, newServer(t), uuid.New())

	csv := "日付,金額,科目,摘要\n" +
		"2024/01/15,\"12,800\",交通費,東京地裁への出張\n" +
		"2024/01/16,3500,会議費,依頼者との打ち合わせ\n"

	rec := c.upload("/api/v1/import/", csv)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, rec)["imported"])

	rec = c.upload("/api/v1/import/", csv+"2024/01/17,1200,通信費,電話代\n")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var conflict struct {
		New       []map[string]any `json:"new"`
		Conflicts []map[string]any `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Len(t, conflict.New, 1)
	assert.Len(t, conflict.Conflicts, 2)

	rec = c.do(http.MethodPost, "/api/v1/import/confirm", map[string]any{"params": conflict.New})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["imported"])

	page := decode[map[string]any](t, c.do(http.MethodGet, "/api/v1/expenses/", nil))
	assert.EqualValues(t, 3, page["total"])

	rec = c.upload("/api/v1/import/", "a,b\n1,2\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CursorPagination(t *testing.T) {
	c := newClient(t, newServer(t), uuid.New())

	for range 3 {
		c.createExpense("交通費")
	}

	rec := c.do(http.MethodGet, "/api/v1/expenses/?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	first := decode[map[string]any](t, rec)
	assert.Len(t, first["items"], 2)

	cursor, ok := first["next_cursor"].(string)
	require.True(t, ok)

	rec = c.do(http.MethodGet, "/api/v1/expenses/?limit=2&cursor="+cursor, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	second := decode[map[string]any](t, rec)
	assert.Len(t, second["items"], 1)
	assert.Nil(t, second["next_cursor"])
}
