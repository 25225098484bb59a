package health

import (
	"context"
	"testing"
)

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]CheckResult
		want    Status
	}{
		{"empty", nil, StatusUnknown},
		{"all healthy", map[string]CheckResult{
			"store": Healthy(""), "sampler": Healthy(""),
		}, StatusHealthy},
		{"one degraded", map[string]CheckResult{
			"store": Degraded("in-memory only"), "sampler": Healthy(""),
		}, StatusDegraded},
		{"unhealthy wins", map[string]CheckResult{
			"store": Degraded(""), "monitor": Unhealthy("no DDC bus"),
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overall(tt.results); got != tt.want {
				t.Errorf("Overall = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckerRun(t *testing.T) {
	c := NewChecker()
	c.Register("sampler", func(ctx context.Context) CheckResult {
		return Healthy("12 devices tracked")
	})
	c.Register("monitor", func(ctx context.Context) CheckResult {
		return Unhealthy("bus timeout")
	})

	results := c.Run(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["sampler"].Status != StatusHealthy {
		t.Errorf("sampler: got %s", results["sampler"].Status)
	}
	if results["monitor"].Message != "bus timeout" {
		t.Errorf("monitor message: got %q", results["monitor"].Message)
	}
	if Overall(results) != StatusUnhealthy {
		t.Errorf("overall: got %s", Overall(results))
	}
}

func TestRegisterReplaces(t *testing.T) {
	c := NewChecker()
	c.Register("store", func(ctx context.Context) CheckResult { return Unhealthy("old") })
	c.Register("store", func(ctx context.Context) CheckResult { return Healthy("new") })

	results := c.Run(context.Background())
	if results["store"].Status != StatusHealthy {
		t.Errorf("expected replacement check, got %s", results["store"].Status)
	}
}
