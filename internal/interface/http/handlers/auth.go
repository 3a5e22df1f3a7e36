package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// BEARER AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMissingToken is returned when the request has no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned when the token cannot be verified.
	ErrInvalidToken = errors.New("invalid bearer token")
)

type requesterKey struct{}

// WithRequester stores the authenticated account id in ctx.
func WithRequester(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, requesterKey{}, accountID)
}

// RequesterFromContext returns the authenticated account id, or "".
func RequesterFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requesterKey{}).(string)
	return id
}

// JWTAuth verifies HS256 access tokens. The "sub" claim is the account id.
type JWTAuth struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTAuth creates an authenticator. An empty issuer disables the iss check.
func NewJWTAuth(secret, issuer string) *JWTAuth {
	return &JWTAuth{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    24 * time.Hour,
		now:    time.Now,
	}
}

// Verify parses the token and returns the account id it was issued for.
func (a *JWTAuth) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject is empty", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Issue signs a token for accountID. Used by tests and local tooling.
func (a *JWTAuth) Issue(accountID string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate extracts the requester from the Authorization header.
// It returns ErrMissingToken when there is no header.
func (a *JWTAuth) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}
	return a.Verify(strings.TrimSpace(token))
}
