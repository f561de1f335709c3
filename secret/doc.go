// Package secret resolves secret values referenced from configuration.
//
// The tunnel secret token should never be written inline in config
// files. Configuration values may instead use:
//   - Strict environment expansion:  ${TUNNEL_TOKEN}
//   - Provider references:           secretref:env:TUNNEL_TOKEN
//
// Unresolvable references are errors, not silently-empty secrets.
package secret
