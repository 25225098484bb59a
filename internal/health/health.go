// Package health tracks component health for the status surface.
//
// Components register check functions; the checker runs them on demand
// and aggregates an overall status. Unlike a network service there is no
// probe endpoint here — the IPC status response carries the results.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health of a component.
type Status string

const (
	// StatusHealthy indicates the component is working.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component works with reduced
	// capability (e.g. persistence failing, state in memory only).
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not working.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the component has not been checked.
	StatusUnknown Status = "unknown"
)

// CheckResult is one component's health at a point in time.
type CheckResult struct {
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check reports a component's current health.
type Check func(ctx context.Context) CheckResult

// Checker runs registered health checks.
type Checker struct {
	mu         sync.RWMutex
	components map[string]Check
	startTime  time.Time
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{
		components: make(map[string]Check),
		startTime:  time.Now(),
	}
}

// Register adds a component check, replacing any previous one with the
// same name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = check
}

// Run executes all checks and returns the results by component name.
func (c *Checker) Run(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.components))
	for name, check := range c.components {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	for name, check := range checks {
		results[name] = check(ctx)
	}
	return results
}

// Overall folds component results into a single status: any unhealthy
// wins, then any degraded, else healthy.
func Overall(results map[string]CheckResult) Status {
	if len(results) == 0 {
		return StatusUnknown
	}
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			overall = StatusDegraded
		}
	}
	return overall
}

// Uptime returns how long the checker (and so the daemon) has been up.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Healthy is a convenience for components with nothing to report.
func Healthy(message string) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: message, LastChecked: time.Now()}
}

// Degraded builds a degraded result.
func Degraded(message string) CheckResult {
	return CheckResult{Status: StatusDegraded, Message: message, LastChecked: time.Now()}
}

// Unhealthy builds an unhealthy result.
func Unhealthy(message string) CheckResult {
	return CheckResult{Status: StatusUnhealthy, Message: message, LastChecked: time.Now()}
}
