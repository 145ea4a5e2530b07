package auth

import (
	"context"

	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/model"
)

type contextKey struct{}

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal, or false for anonymous requests.
func FromContext(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(authz.Principal)
	return p, ok
}

func UserID(ctx context.Context) int64 {
	p, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return p.UserID
}

func IsAdmin(ctx context.Context) bool {
	p, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return p.Role == model.RoleAdmin
}
