package tenant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the access-token payload issued by the identity service.
// The user id travels in the standard "sub" claim.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Resolver turns a bearer token into a Caller.
type Resolver struct {
	secret []byte
	parser *jwt.Parser
}

func NewResolver(secret string) *Resolver {
	return &Resolver{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (r *Resolver) Resolve(token string) (Caller, error) {
	if token == "" || len(r.secret) == 0 {
		return Caller{}, ErrUnauthenticated
	}

	var claims Claims

	_, err := r.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: invalid tenant_id claim", ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: invalid sub claim", ErrUnauthenticated)
	}

	c := Caller{TenantID: tenantID, UserID: userID}

	return c, c.Validate()
}

// ResolveRequest reads the caller from an "Authorization: Bearer" header.
func (r *Resolver) ResolveRequest(req *http.Request) (Caller, error) {
	header := req.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return Caller{}, errors.Join(ErrUnauthenticated, errors.New("missing bearer token"))
	}

	return r.Resolve(strings.TrimSpace(token))
}
