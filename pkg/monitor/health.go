// Package monitor provides the alert-monitoring view's backing logic:
// service health checks, a user-toggled live telemetry simulation, and a
// subscription to the alert stream.
package monitor

import (
	"context"
	"sort"
	"sync"

	"github.com/verdantops/esgportal/pkg/client"
)

// ServiceHealth reports reachability of one backend service.
type ServiceHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthChecker fans health checks out across the configured services.
type HealthChecker struct {
	services map[string]*client.Client
}

// NewHealthChecker builds a checker over named service clients.
func NewHealthChecker(services map[string]*client.Client) *HealthChecker {
	return &HealthChecker{services: services}
}

// CheckAll probes every service concurrently and returns results sorted
// by service name. A connection error marks the service unhealthy; it is
// never fatal to the check as a whole.
func (h *HealthChecker) CheckAll(ctx context.Context) []ServiceHealth {
	results := make([]ServiceHealth, 0, len(h.services))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for name, c := range h.services {
		wg.Add(1)

		go func(name string, c *client.Client) {
			defer wg.Done()

			status := ServiceHealth{Name: name, Healthy: true}
			if err := c.Health(ctx); err != nil {
				status.Healthy = false
				status.Message = err.Error()
			}

			mu.Lock()
			results = append(results, status)
			mu.Unlock()
		}(name, c)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	return results
}
