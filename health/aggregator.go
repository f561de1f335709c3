package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Aggregator runs a named set of checks. Registration order is kept so
// reported output is stable.
type Aggregator struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
	order  []string
}

// NewAggregator creates an aggregator. timeout bounds a whole CheckAll
// pass; zero means 10 seconds.
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		timeout: timeout,
		checks:  make(map[string]Check),
	}
}

// Register adds a check under the given name, replacing any previous
// check with the same name.
func (a *Aggregator) Register(name string, check Check) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.checks[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checks[name] = check
}

// Names returns the registered check names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Check runs a single named check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	check, ok := a.checks[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrUnknownCheck
	}
	return a.run(ctx, check), nil
}

// CheckAll runs every registered check concurrently and returns the
// results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	names := make([]string, len(a.order))
	copy(names, a.order)
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = a.checks[name]
	}
	a.mu.RUnlock()

	if len(names) == 0 {
		return map[string]Result{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([]Result, len(names))
	var g errgroup.Group
	for i := range checks {
		i := i
		g.Go(func() error {
			results[i] = a.run(ctx, checks[i])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

// run executes one check, bounding a stuck check by the context: a
// check that outlives ctx is reported unhealthy and its goroutine is
// abandoned.
func (a *Aggregator) run(ctx context.Context, check Check) Result {
	start := time.Now()

	done := make(chan Result, 1)
	go func() {
		r := check(ctx)
		r.Duration = time.Since(start)
		if r.Checked.IsZero() {
			r.Checked = start
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return Result{
			Status:   StatusUnhealthy,
			Message:  "check timed out",
			Err:      ErrCheckTimeout,
			Duration: time.Since(start),
			Checked:  start,
		}
	}
}
