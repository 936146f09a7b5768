package tenant_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/lexledger/internal/database"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims tenant.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return token
}

func validClaims(tenantID, userID uuid.UUID) tenant.Claims {
	return tenant.Claims{
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestResolver_Resolve(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	type testCase struct {
		name    string
		token   func(t *testing.T) string
		wantErr bool
	}

	tests := []testCase{
		{
			name: "Valid",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims(tenantID, userID))
			},
		},
		{
			name: "WrongSecret",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims(tenantID, userID))
			},
			wantErr: true,
		},
		{
			name: "Expired",
			token: func(t *testing.T) string {
				c := validClaims(tenantID, userID)
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

				return sign(t, jwt.SigningMethodHS256, []byte(secret), c)
			},
			wantErr: true,
		},
		{
			name: "MissingExpiry",
			token: func(t *testing.T) string {
				c := validClaims(tenantID, userID)
				c.ExpiresAt = nil

				return sign(t, jwt.SigningMethodHS256, []byte(secret), c)
			},
			wantErr: true,
		},
		{
			name: "BadTenantClaim",
			token: func(t *testing.T) string {
				c := validClaims(tenantID, userID)
				c.TenantID = "not-a-uuid"

				return sign(t, jwt.SigningMethodHS256, []byte(secret), c)
			},
			wantErr: true,
		},
		{
			name: "NilUser",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims(tenantID, uuid.Nil))
			},
			wantErr: true,
		},
		{
			name:    "Empty",
			token:   func(*testing.T) string { return "" },
			wantErr: true,
		},
	}

	r := tenant.NewResolver(secret)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.token(t))

			if tt.wantErr {
				assert.ErrorIs(t, err, tenant.ErrUnauthenticated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tenant.Caller{TenantID: tenantID, UserID: userID}, got)
		})
	}
}

func TestResolver_ResolveRequest(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	r := tenant.NewResolver(secret)

	req := httptest.NewRequest("GET", "/", nil)
	_, err := r.ResolveRequest(req)
	assert.ErrorIs(t, err, tenant.ErrUnauthenticated)

	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims(tenantID, userID)))
	got, err := r.ResolveRequest(req)
	require.NoError(t, err)
	assert.Equal(t, tenantID, got.TenantID)
}

func TestCaller_Owns(t *testing.T) {
	c := tenant.Caller{TenantID: uuid.New(), UserID: uuid.New()}

	assert.NoError(t, c.Owns(c.TenantID))
	assert.NoError(t, c.Owns(uuid.Nil))

	err := c.Owns(uuid.New())
	assert.ErrorIs(t, err, tenant.ErrTenantMismatch)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestContext_RoundTrip(t *testing.T) {
	_, err := tenant.FromContext(context.Background())
	assert.ErrorIs(t, err, tenant.ErrUnauthenticated)

	c := tenant.Caller{TenantID: uuid.New(), UserID: uuid.New()}
	got, err := tenant.FromContext(tenant.NewContext(context.Background(), c))
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
