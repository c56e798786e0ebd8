package token

import (
	"net/http"

	"github.com/adevav/adevav-api/internal/policy"
)

// Resolver turns the bearer credential of each request into an Identity in the
// request context. It never fails a request: a missing, expired or otherwise
// invalid credential resolves to the anonymous identity, and routes that need
// authentication reject it at the policy gate instead.
type Resolver struct {
	manager *Manager
}

// NewResolver constructs a Resolver.
func NewResolver(manager *Manager) *Resolver {
	return &Resolver{manager: manager}
}

// Middleware resolves the caller identity for every request.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := res.Resolve(r.Header.Get("Authorization"))
		next.ServeHTTP(w, r.WithContext(policy.ContextWithIdentity(r.Context(), id)))
	})
}

// Resolve is the lenient resolution: anonymous on any verification failure.
func (res *Resolver) Resolve(authorization string) policy.Identity {
	raw := FromHeader(authorization)
	if raw == "" {
		return policy.Identity{}
	}
	id, err := res.manager.Verify(raw)
	if err != nil {
		return policy.Identity{}
	}
	return id
}
