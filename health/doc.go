// Package health reports the liveness of this module's moving parts:
// the Access key cache (has the key set been fetched recently enough to
// verify tokens?) and the tunnel connector (is the process still
// running?). Checkers aggregate into a single result suitable for a
// host health endpoint.
package health
