package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// allowedAlgorithms are the only signing algorithms Cloudflare Access
// issues tokens with. Anything else is rejected before key lookup.
var allowedAlgorithms = []string{"RS256", "ES256"}

// expirationLeeway is the clock-skew allowance applied to the exp claim.
// Exact-time comparison causes spurious expiries near the boundary when
// the verifying host's clock drifts from the issuer's.
const expirationLeeway = 30 * time.Second

// verifier performs the cryptographic and claim checks for one
// team domain / audience pair. It is a pure function of (token, cache
// state): no per-call state is retained.
type verifier struct {
	cache    *KeyCache
	issuer   string
	audience string
	parser   *jwt.Parser
}

func newVerifier(cache *KeyCache, teamDomain, audience string) *verifier {
	issuer := "https://" + teamDomain + ".cloudflareaccess.com"
	return &verifier{
		cache:    cache,
		issuer:   issuer,
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods(allowedAlgorithms),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(expirationLeeway),
			jwt.WithIssuer(issuer),
		),
	}
}

// verify validates the token and returns the identity it asserts.
// Every failure returns a sentinel-wrapped error; callers decide how
// much of the cause to surface.
func (v *verifier) verify(ctx context.Context, tokenString string) (*Identity, error) {
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrMalformedToken
	}

	token, err := v.parser.Parse(tokenString, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, alg, err := v.cache.Get(ctx, kid)
		if err != nil {
			return nil, err
		}
		// The token's claimed algorithm must match the algorithm the
		// key set binds to this key. Without this a token could name
		// an algorithm the key was never meant for.
		if alg != t.Method.Alg() {
			return nil, ErrAlgorithmMismatch
		}
		return key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	if v.audience != "" && !containsAudience(claims, v.audience) {
		return nil, ErrAudienceMismatch
	}

	email, _ := claims["email"].(string)
	if email == "" {
		email, _ = claims["sub"].(string)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: no email or sub claim", ErrInvalidClaims)
	}

	return &Identity{Email: email}, nil
}

// classifyParseError maps jwt parse errors onto this package's
// sentinels, passing key-cache errors through untouched.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrKeyNotFound),
		errors.Is(err, ErrFetchFailed),
		errors.Is(err, ErrAlgorithmMismatch):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
}

// containsAudience reports whether the aud claim (string or array form)
// contains the target audience.
func containsAudience(claims jwt.MapClaims, target string) bool {
	switch aud := claims["aud"].(type) {
	case string:
		return aud == target
	case []any:
		for _, a := range aud {
			if s, ok := a.(string); ok && s == target {
				return true
			}
		}
	}
	return false
}
