package access

import "errors"

// Sentinel errors for token verification. These never cross the Verifier's
// public boundary; they exist so internal failure causes stay inspectable
// for logging and tests.
var (
	ErrMissingTeamDomain = errors.New("access: team domain is required")

	ErrMissingToken      = errors.New("access: no token supplied")
	ErrMalformedToken    = errors.New("access: token malformed")
	ErrTokenExpired      = errors.New("access: token expired")
	ErrInvalidClaims     = errors.New("access: invalid claims")
	ErrAudienceMismatch  = errors.New("access: audience mismatch")
	ErrAlgorithmMismatch = errors.New("access: token algorithm does not match key")

	ErrKeyNotFound = errors.New("access: signing key not found")
	ErrFetchFailed = errors.New("access: key set fetch failed")
)
