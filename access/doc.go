// Package access verifies Cloudflare Access identity assertions.
//
// It validates the JWT that Cloudflare Access attaches to requests arriving
// through the edge, checking signatures against the team's published key set
// with caching, key-rotation handling, and negative-cache protection against
// floods of bogus key IDs. Verification never fails loudly: a request with a
// bad or missing token simply continues unauthenticated, and authorization is
// left to downstream policy.
package access
