package access

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/G4brym/openclaw-cloudflare/observe"
)

// Config configures the access verifier.
type Config struct {
	// TeamDomain is the Cloudflare Access team domain, i.e. the <team>
	// in https://<team>.cloudflareaccess.com. Required.
	TeamDomain string

	// Audience is the Access application audience tag. When set, tokens
	// whose aud claim does not contain it are rejected. Optional.
	Audience string

	// HTTPClient is used for JWKS fetches. If nil, a default client
	// with 30s timeout is used.
	HTTPClient *http.Client

	// Logger receives debug-level records of rejected tokens. Optional.
	Logger observe.Logger

	// Meter records verification counters. Optional.
	Meter metric.Meter
}

// Verifier is the unit request handling holds: one team domain and
// optional audience bound to one key cache. The key cache is the only
// cross-call state and is safe for concurrent use.
type Verifier struct {
	verifier *verifier
	cache    *KeyCache
	logger   observe.Logger

	verifyTotal    metric.Int64Counter
	verifyFailures metric.Int64Counter
}

// New creates a Verifier for the given team domain.
func New(config Config) (*Verifier, error) {
	if config.TeamDomain == "" {
		return nil, ErrMissingTeamDomain
	}

	cache := NewKeyCache(KeyCacheConfig{
		URL:        CertsURL(config.TeamDomain),
		HTTPClient: config.HTTPClient,
	})

	v := &Verifier{
		verifier: newVerifier(cache, config.TeamDomain, config.Audience),
		cache:    cache,
	}
	if config.Logger != nil {
		v.logger = config.Logger.WithComponent("access")
	}

	if config.Meter != nil {
		var err error
		v.verifyTotal, err = config.Meter.Int64Counter(
			"access.verify.total",
			metric.WithDescription("Total number of token verifications"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			return nil, err
		}
		v.verifyFailures, err = config.Meter.Int64Counter(
			"access.verify.failures",
			metric.WithDescription("Total number of rejected token verifications"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Verify validates a compact JWT and returns the identity it asserts,
// or nil. It never returns an error and never panics: malformed tokens,
// unknown keys, fetch failures, bad signatures, and bad claims all
// degrade to an unauthenticated result.
func (v *Verifier) Verify(ctx context.Context, token string) *Identity {
	if token == "" {
		v.record(ctx, ErrMissingToken)
		return nil
	}

	id, err := v.verifier.verify(ctx, token)
	v.record(ctx, err)
	if err != nil {
		if v.logger != nil {
			v.logger.Debug(ctx, "token rejected",
				observe.Field{Key: "cause", Value: err.Error()},
			)
		}
		return nil
	}
	return id
}

// KeyCache exposes the underlying key cache, for health checks.
func (v *Verifier) KeyCache() *KeyCache {
	return v.cache
}

func (v *Verifier) record(ctx context.Context, err error) {
	if v.verifyTotal == nil {
		return
	}
	v.verifyTotal.Add(ctx, 1)
	if err != nil {
		v.verifyFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cause", failureCause(err)),
		))
	}
}

// failureCause collapses an error chain to a low-cardinality label.
func failureCause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrAudienceMismatch):
		return "audience"
	case errors.Is(err, ErrAlgorithmMismatch):
		return "algorithm"
	case errors.Is(err, ErrInvalidClaims):
		return "claims"
	default:
		return "malformed"
	}
}
