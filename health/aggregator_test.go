package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAggregator_Check(t *testing.T) {
	a := NewAggregator(0)
	a.Register("ok", func(context.Context) Result { return Healthy("fine") })

	result, err := a.Check(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}
	if result.Duration <= 0 {
		t.Error("Duration should be recorded")
	}

	if _, err := a.Check(context.Background(), "missing"); !errors.Is(err, ErrUnknownCheck) {
		t.Errorf("Check(missing) error = %v, want ErrUnknownCheck", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	a := NewAggregator(0)
	a.Register("a", func(context.Context) Result { return Healthy("fine") })
	a.Register("b", func(context.Context) Result { return Degraded("slow") })
	a.Register("c", func(context.Context) Result {
		return Unhealthy("down", errors.New("connection refused"))
	})

	results := a.CheckAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results["a"].Status != StatusHealthy {
		t.Errorf("a = %v, want healthy", results["a"].Status)
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b = %v, want degraded", results["b"].Status)
	}
	if results["c"].Status != StatusUnhealthy {
		t.Errorf("c = %v, want unhealthy", results["c"].Status)
	}
}

func TestAggregator_CheckTimeout(t *testing.T) {
	a := NewAggregator(50 * time.Millisecond)
	a.Register("slow", func(ctx context.Context) Result {
		select {
		case <-time.After(5 * time.Second):
			return Healthy("eventually")
		case <-ctx.Done():
			return Unhealthy("interrupted", ctx.Err())
		}
	})

	results := a.CheckAll(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("slow = %v, want unhealthy on timeout", results["slow"].Status)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := Overall(tt.results); got != tt.want {
			t.Errorf("%s: Overall() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAggregator_Names(t *testing.T) {
	a := NewAggregator(0)
	a.Register("first", func(context.Context) Result { return Healthy("") })
	a.Register("second", func(context.Context) Result { return Healthy("") })
	a.Register("first", func(context.Context) Result { return Healthy("") })

	names := a.Names()
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("Names() = %v, want [first second]", names)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
