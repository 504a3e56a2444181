package auth

import "context"

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFrom returns the authenticated user id, or "" when the request is
// anonymous.
func UserIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(ctxKey{}).(string)
	return uid
}
