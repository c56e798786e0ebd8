package policy

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the resolved caller of a single request. The zero value is the
// anonymous identity. Self is advisory metadata set by the enforcer when the
// request was admitted through the self allowance; handlers must still compare
// SubjectID against the resource's owner before acting on it.
type Identity struct {
	SubjectID uuid.UUID
	Role      Role
	Self      bool
}

// Anonymous reports whether the identity carries no authenticated subject.
func (i Identity) Anonymous() bool {
	return i.SubjectID == uuid.Nil
}

// Owns reports whether the identity is the owner of the given subject id.
func (i Identity) Owns(ownerID uuid.UUID) bool {
	return !i.Anonymous() && i.SubjectID == ownerID
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context, anonymous when absent.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}
