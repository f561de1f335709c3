package health

import (
	"context"
	"fmt"
	"time"

	"github.com/G4brym/openclaw-cloudflare/access"
	"github.com/G4brym/openclaw-cloudflare/tunnel"
)

// KeyCacheCheck reports on the Access key cache. Healthy while the key
// set has been fetched within twice its TTL; degraded when nothing has
// been fetched yet (normal before the first request carrying a token);
// unhealthy once the cache is badly stale, which means JWKS fetches are
// failing.
func KeyCacheCheck(cache *access.KeyCache) Check {
	return func(_ context.Context) Result {
		last := cache.LastFetch()
		if last.IsZero() {
			return Degraded("key set not fetched yet")
		}

		age := time.Since(last)
		if age > 2*cache.TTL() {
			return Unhealthy(
				fmt.Sprintf("key set stale for %s", age.Round(time.Second)),
				ErrCheckFailed,
			)
		}
		return Healthy(fmt.Sprintf("key set fetched %s ago", age.Round(time.Second))).
			WithDetails(map[string]any{"last_fetch": last})
	}
}

// ConnectorCheck reports on a managed tunnel connector. Healthy while
// the process is running, unhealthy once it has exited.
func ConnectorCheck(handle *tunnel.Handle) Check {
	return func(_ context.Context) Result {
		if handle == nil {
			return Degraded("no managed connector")
		}
		if !handle.Running() {
			return Unhealthy("connector process exited", ErrCheckFailed)
		}
		return Healthy("connector running").WithDetails(map[string]any{
			"connector_id": handle.ConnectorID,
			"pid":          handle.PID,
		})
	}
}
