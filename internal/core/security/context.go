// Package security carries the authenticated caller through the
// request context: the user ID set by the auth middleware and the
// access scope the domain layer checks roles against.
package security

import "context"

type userIDKey struct{}

// WithUserID attaches the authenticated user ID to the context.
// Set once by the auth middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID returns the authenticated user ID, empty for anonymous
// calls. Services use it to stamp CreatedBy and UpdatedBy on writes.
func GetUserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey{}).(string); ok {
		return uid
	}
	return ""
}
