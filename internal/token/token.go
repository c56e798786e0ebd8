// Package token issues and verifies the bearer credentials the API hands out
// on login. Verification comes in two flavors: Manager.Verify is the strict
// path returning shared.ErrInvalidCredential, while Resolver.Middleware is the
// lenient path that resolves every failure to the anonymous identity and
// leaves the denial to the route policy gate.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

const (
	issuer   = "ADEVAV"
	audience = "adevav.org"
)

// Claims are the JWT claims carried by an issued credential.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies credentials with a process-wide HS256 secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager. The secret must not be empty.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a credential for the given subject and role, prefixed with the
// Bearer scheme the way clients are expected to send it back.
func (m *Manager) Issue(subjectID uuid.UUID, role policy.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return "Bearer " + signed, nil
}

// Verify parses and validates a raw credential. Every failure mode - malformed
// token, wrong signing method, bad signature, expiry, missing role - collapses
// into shared.ErrInvalidCredential so call sites cannot branch on token
// internals.
func (m *Manager) Verify(raw string) (policy.Identity, error) {
	if raw == "" {
		return policy.Identity{}, shared.ErrInvalidCredential
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return policy.Identity{}, shared.ErrInvalidCredential
	}

	role, ok := policy.RoleFromString(claims.Role)
	if !ok || !role.Assignable() {
		return policy.Identity{}, shared.ErrInvalidCredential
	}
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return policy.Identity{}, shared.ErrInvalidCredential
	}
	return policy.Identity{SubjectID: subjectID, Role: role}, nil
}

// FromHeader extracts the credential from an Authorization header value. The
// header must carry exactly two space-separated parts; the scheme itself is
// not inspected, matching the tolerant client behavior the API always had.
func FromHeader(authorization string) string {
	parts := strings.Fields(authorization)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
