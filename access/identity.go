package access

import "context"

// Identity is the verified principal extracted from an Access token.
// It is produced per verification call and owned by the caller.
type Identity struct {
	// Email is the authenticated user's email address. When the token
	// carries no email claim (service tokens), the subject claim is
	// used instead.
	Email string
}

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context with the given identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil if the request was not authenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// EmailFromContext retrieves the authenticated email from the context.
// Returns empty string if the request was not authenticated.
func EmailFromContext(ctx context.Context) string {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ""
	}
	return id.Email
}
