package access

import "net/http"

// Header names used by the identity middleware.
const (
	// TokenHeader carries the compact JWT Cloudflare Access attaches
	// to requests arriving through the edge.
	TokenHeader = "Cf-Access-Jwt-Assertion"

	// IdentityHeader carries the verified email downstream.
	IdentityHeader = "X-Webauth-User"

	// SourceHeader tags which authentication source set IdentityHeader.
	SourceHeader = "X-Webauth-Source"

	// SourceValue is the fixed tag written to SourceHeader.
	SourceValue = "cloudflare-access"
)

// Middleware verifies the Access token on each request and forwards the
// verified identity via request headers and context.
//
// The identity headers are always stripped from the inbound request
// before verification runs, whether or not a token is present, so an
// untrusted client can never inject them. A rejected or missing token
// leaves the request unauthenticated but does not block it; downstream
// policy decides what unauthenticated requests may do.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(IdentityHeader)
		r.Header.Del(SourceHeader)

		// Only the first header value counts if the header is
		// supplied multiple times.
		token := r.Header.Get(TokenHeader)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id := v.Verify(r.Context(), token)
		if id == nil {
			next.ServeHTTP(w, r)
			return
		}

		r.Header.Set(IdentityHeader, id.Email)
		r.Header.Set(SourceHeader, SourceValue)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
