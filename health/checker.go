package health

import (
	"context"
	"time"
)

// Status classifies a component's health.
type Status int

const (
	// StatusHealthy means the component is working.
	StatusHealthy Status = iota

	// StatusDegraded means the component works but something is off,
	// for example a key set that has never been fetched.
	StatusDegraded

	// StatusUnhealthy means the component is broken.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of probing a single component.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Checked  time.Time
	Err      error
}

// Check probes one component. Implementations must be safe for
// concurrent use and should honor ctx cancellation when they block.
type Check func(ctx context.Context) Result

// Healthy builds a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Checked: time.Now()}
}

// Degraded builds a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Checked: time.Now()}
}

// Unhealthy builds an unhealthy result carrying the underlying error.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err, Checked: time.Now()}
}

// WithDetails attaches metadata to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Overall folds a set of results into one status: unhealthy beats
// degraded beats healthy. An empty set is healthy.
func Overall(results map[string]Result) Status {
	overall := StatusHealthy
	for _, r := range results {
		if r.Status > overall {
			overall = r.Status
		}
	}
	return overall
}
