package access

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeyCacheConfig configures the JWKS key cache.
type KeyCacheConfig struct {
	// URL is the JWKS endpoint URL. See CertsURL.
	URL string

	// CacheTTL is how long a fetched key set is considered fresh.
	// Default: 10 minutes
	CacheTTL time.Duration

	// MissCooldown is how long lookups of missing key IDs are served
	// from cache alone after a refresh failed to produce the key.
	// Default: 30 seconds
	MissCooldown time.Duration

	// RotationGuard is the minimum age of the last fetch before a key
	// miss may force an early refresh. Bounds the fetch cost of a burst
	// of tokens carrying a freshly rotated key ID.
	// Default: 5 seconds
	RotationGuard time.Duration

	// HTTPClient is the HTTP client to use for requests.
	// If nil, a default client with 30s timeout is used.
	HTTPClient *http.Client
}

// cachedKey pairs a parsed public key with the algorithm the key set
// declares for it.
type cachedKey struct {
	key any
	alg string
}

// KeyCache holds the team's published signing keys, refreshed from the
// JWKS endpoint. Entries are replaced wholesale on refresh, never merged,
// so readers observe the key set either just before or just after a
// rotation, never a mix.
//
// Safe for concurrent use. Concurrent misses share a single in-flight
// fetch.
type KeyCache struct {
	config KeyCacheConfig

	mu            sync.RWMutex
	keys          map[string]cachedKey
	lastFetch     time.Time
	cooldownUntil time.Time
	sfGroup       singleflight.Group
}

// CertsURL returns the Cloudflare Access JWKS endpoint for a team domain.
func CertsURL(teamDomain string) string {
	return "https://" + teamDomain + ".cloudflareaccess.com/cdn-cgi/access/certs"
}

// NewKeyCache creates an empty key cache. No fetch happens until the
// first lookup.
func NewKeyCache(config KeyCacheConfig) *KeyCache {
	// Apply defaults
	if config.CacheTTL == 0 {
		config.CacheTTL = 10 * time.Minute
	}
	if config.MissCooldown == 0 {
		config.MissCooldown = 30 * time.Second
	}
	if config.RotationGuard == 0 {
		config.RotationGuard = 5 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &KeyCache{
		config: config,
		keys:   make(map[string]cachedKey),
	}
}

// Get returns the public key and declared algorithm for the given key ID,
// refreshing the cache per policy:
//
//   - a fresh hit is served without network traffic;
//   - a stale cache (older than CacheTTL) is refreshed before lookup;
//   - a miss against a fresh cache forces an early refresh only once the
//     rotation guard has elapsed and no miss cooldown is active;
//   - a refresh that still does not produce the key arms the miss
//     cooldown and returns ErrKeyNotFound.
func (c *KeyCache) Get(ctx context.Context, kid string) (any, string, error) {
	c.mu.RLock()
	entry, ok := c.keys[kid]
	fetchAge := time.Since(c.lastFetch)
	cooling := time.Now().Before(c.cooldownUntil)
	c.mu.RUnlock()

	fresh := fetchAge < c.config.CacheTTL

	if ok && fresh {
		return entry.key, entry.alg, nil
	}

	if !ok && fresh {
		// The key set was fetched recently and the kid is not in it.
		// Only a rotation can change that, and rotations are rare:
		// refresh early only when the guard has elapsed and no
		// cooldown from a previous failed miss is active.
		if cooling || fetchAge < c.config.RotationGuard {
			return nil, "", ErrKeyNotFound
		}
	}

	if err := c.refresh(ctx); err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	entry, ok = c.keys[kid]
	if !ok {
		c.cooldownUntil = time.Now().Add(c.config.MissCooldown)
	}
	c.mu.Unlock()

	if !ok {
		return nil, "", ErrKeyNotFound
	}
	return entry.key, entry.alg, nil
}

// TTL returns how long a fetched key set is considered fresh.
func (c *KeyCache) TTL() time.Duration {
	return c.config.CacheTTL
}

// LastFetch returns when the key set was last fetched successfully.
// Zero if no fetch has succeeded yet.
func (c *KeyCache) LastFetch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

// refresh fetches the key set, deduplicating concurrent callers so a
// flood of simultaneous misses costs at most one network round trip.
func (c *KeyCache) refresh(ctx context.Context) error {
	_, err, _ := c.sfGroup.Do("refresh", func() (any, error) {
		return nil, c.fetch(ctx)
	})
	return err
}

// fetch retrieves and parses the JWKS document, replacing all cache
// entries atomically. On any error the cache is left unchanged.
func (c *KeyCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrFetchFailed, err)
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrFetchFailed, err)
	}

	keys := make(map[string]cachedKey)
	for _, k := range doc.Keys {
		key, alg, err := parsePublicKey(k)
		if err != nil {
			continue // Skip unsupported or invalid keys
		}
		keys[k.Kid] = cachedKey{key: key, alg: alg}
	}

	c.mu.Lock()
	c.keys = keys
	c.lastFetch = time.Now()
	c.mu.Unlock()

	return nil
}

// jwksDocument is the JWKS endpoint response format.
type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// jwk represents a single published key.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`

	// RSA parameters
	N string `json:"n"`
	E string `json:"e"`

	// EC parameters
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// parsePublicKey converts a JWK into a crypto public key plus the
// algorithm the key is bound to.
func parsePublicKey(k jwk) (any, string, error) {
	switch k.Kty {
	case "RSA":
		key, err := parseRSAPublicKey(k)
		if err != nil {
			return nil, "", err
		}
		alg := k.Alg
		if alg == "" {
			alg = "RS256"
		}
		return key, alg, nil

	case "EC":
		key, err := parseECPublicKey(k)
		if err != nil {
			return nil, "", err
		}
		alg := k.Alg
		if alg == "" {
			alg = "ES256"
		}
		return key, alg, nil

	default:
		return nil, "", fmt.Errorf("unsupported key type %q", k.Kty)
	}
}

// parseRSAPublicKey converts an RSA JWK to an *rsa.PublicKey.
func parseRSAPublicKey(k jwk) (*rsa.PublicKey, error) {
	if k.N == "" {
		return nil, fmt.Errorf("missing n parameter")
	}
	if k.E == "" {
		return nil, fmt.Errorf("missing e parameter")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// parseECPublicKey converts a P-256 EC JWK to an *ecdsa.PublicKey.
func parseECPublicKey(k jwk) (*ecdsa.PublicKey, error) {
	if k.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported curve %q", k.Crv)
	}
	if k.X == "" || k.Y == "" {
		return nil, fmt.Errorf("missing x/y parameters")
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
