package health

import "errors"

var (
	// ErrCheckFailed indicates a component failed its check.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a check did not finish within the
	// aggregator's timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrUnknownCheck indicates the named check is not registered.
	ErrUnknownCheck = errors.New("health: unknown check")
)
