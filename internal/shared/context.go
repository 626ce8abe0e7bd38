package shared

import (
	"context"

	"github.com/google/uuid"
)

type principalContextKey struct{}

// Principal identifies the authenticated caller for authorization decisions.
// How a request becomes a Principal is the hosting layer's concern; the engine
// only ever reads it back out of the context.
type Principal struct {
	UserID uuid.UUID
}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
