// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package health reports reachability of the corpus store and the embedding endpoint.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/poiesic/pairfinder/ai"
)

// Status represents the health state of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// DefaultTimeout bounds a full health run.
const DefaultTimeout = 5 * time.Second

// probeText is embedded to prove the endpoint answers with a usable vector.
const probeText = "health check"

// Check represents a single health check.
type Check struct {
	Name    string            `json:"name"`
	Status  Status            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Report is the combined result of all checks.
type Report struct {
	Status    Status    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// CheckFunc performs a health check.
type CheckFunc func(ctx context.Context) Check

type namedCheck struct {
	name string
	fn   CheckFunc
}

// Checker runs registered checks in registration order.
type Checker struct {
	mu      sync.RWMutex
	checks  []namedCheck
	service string
	version string
	timeout time.Duration
}

// NewChecker creates a checker with no checks registered.
func NewChecker(service, version string) *Checker {
	return &Checker{
		service: service,
		version: version,
		timeout: DefaultTimeout,
	}
}

// SetTimeout changes the bound on a full health run.
func (c *Checker) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// RegisterCheck adds a health check. A check with the same name is replaced.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].fn = fn
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, fn: fn})
}

// Run executes every check. Any unhealthy check makes the report unhealthy;
// otherwise any degraded check makes it degraded.
func (c *Checker) Run(ctx context.Context) *Report {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	timeout := c.timeout
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := &Report{
		Status:    StatusHealthy,
		Service:   c.service,
		Version:   c.version,
		Timestamp: time.Now().UTC(),
		Checks:    make([]Check, 0, len(checks)),
	}
	for _, nc := range checks {
		check := nc.fn(ctx)
		check.Name = nc.name
		report.Checks = append(report.Checks, check)

		switch {
		case check.Status == StatusUnhealthy:
			report.Status = StatusUnhealthy
		case check.Status == StatusDegraded && report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}

// Handler serves the report as JSON, with 503 when unhealthy.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(report)
	})
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreCheck reports the store unhealthy when it cannot be reached.
func StoreCheck(store Pinger, description string) CheckFunc {
	return func(ctx context.Context) Check {
		details := map[string]string{"store": description}
		if err := store.Ping(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error(), Details: details}
		}
		details["database"] = "connected"
		return Check{Status: StatusHealthy, Details: details}
	}
}

// EmbedderCheck embeds a probe text. Failure degrades the service: point
// lookups still work but searches do not.
func EmbedderCheck(embedder ai.Embedder, model string) CheckFunc {
	return func(ctx context.Context) Check {
		details := map[string]string{"model": model}
		if _, err := embedder.EmbedText(ctx, probeText); err != nil {
			return Check{Status: StatusDegraded, Message: err.Error(), Details: details}
		}
		details["embedding"] = "reachable"
		return Check{Status: StatusHealthy, Details: details}
	}
}
