// Package health aggregates component checks into a single report.
package health

import (
	"context"
	"os"
	"sync"
	"time"

	"monolith.network/netpkg/internal/clock"
	"monolith.network/netpkg/internal/services"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTTL is how long a report is served from cache.
const DefaultTTL = 5 * time.Second

// Check represents a single health check.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"lastChecked"`
	Duration    time.Duration `json:"durationNs"`
}

// Report represents the overall health report.
type Report struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// Healthy reports whether the overall status is not unhealthy.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}

// CheckFunc performs one check. Name, LastChecked and Duration are filled
// in by the Checker.
type CheckFunc func(ctx context.Context) Check

// Checker runs registered checks concurrently and caches the report.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	cache  *Report
	ttl    time.Duration
	clock  clock.Clock
}

// NewChecker creates a checker with no checks. A zero ttl disables caching.
func NewChecker(ttl time.Duration, clk clock.Clock) *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		ttl:    ttl,
		clock:  clock.OrReal(clk),
	}
}

// Register adds or replaces a check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
	c.cache = nil
}

// Check runs all checks and returns the report. The worst check decides
// the overall status.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	if c.cache != nil && c.clock.Since(c.cache.Timestamp) < c.ttl {
		report := *c.cache
		c.mu.RUnlock()
		return report
	}
	funcs := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		funcs[name] = fn
	}
	c.mu.RUnlock()

	checks := make(map[string]Check, len(funcs))
	overall := StatusHealthy

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, fn := range funcs {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			start := c.clock.Now()
			check := fn(ctx)
			check.Name = name
			check.LastChecked = start
			check.Duration = c.clock.Since(start)

			mu.Lock()
			defer mu.Unlock()
			checks[name] = check
			switch {
			case check.Status == StatusUnhealthy:
				overall = StatusUnhealthy
			case check.Status == StatusDegraded && overall != StatusUnhealthy:
				overall = StatusDegraded
			}
		}(name, fn)
	}
	wg.Wait()

	report := Report{Status: overall, Checks: checks, Timestamp: c.clock.Now()}
	c.mu.Lock()
	c.cache = &report
	c.mu.Unlock()
	return report
}

func healthy(msg string) Check {
	return Check{Status: StatusHealthy, Message: msg}
}

// PingCheck is unhealthy when ping fails.
func PingCheck(ping func() error) CheckFunc {
	return func(context.Context) Check {
		if err := ping(); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return healthy("ok")
	}
}

// FileCheck is degraded when path cannot be read.
func FileCheck(path string) CheckFunc {
	return func(context.Context) Check {
		info, err := os.Stat(path)
		if err != nil {
			return Check{Status: StatusDegraded, Message: err.Error()}
		}
		return healthy(path + " modified " + info.ModTime().Format(time.RFC3339))
	}
}

// ServiceCheck is degraded when the service is not running or its status
// cannot be read.
func ServiceCheck(status func(ctx context.Context) (services.ServiceStatus, error)) CheckFunc {
	return func(ctx context.Context) Check {
		st, err := status(ctx)
		switch {
		case err != nil:
			return Check{Status: StatusDegraded, Message: err.Error()}
		case !st.Running:
			return Check{Status: StatusDegraded, Message: st.Name + " is " + st.Status}
		}
		return healthy(st.Name + " is " + st.Status)
	}
}
