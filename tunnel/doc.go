// Package tunnel supervises the cloudflared connector process.
//
// The Supervisor spawns the connector with the tunnel secret passed via
// the environment, scans its combined output for the registration line
// that signals the tunnel is live, and races that signal against process
// exit and a timeout. The Orchestrator decides, per exposure mode,
// whether a connector should be started at all; a failed start degrades
// the feature to "no tunnel" instead of failing the host.
package tunnel
