package auth

import "context"

type contextKey int

const userContextKey contextKey = 0

func withUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated (or anonymous) username
// stamped by Middleware, defaulting to AnonymousUser if absent.
func UserFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(userContextKey).(string); ok && u != "" {
		return u
	}
	return AnonymousUser
}
