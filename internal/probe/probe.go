// Package probe collects host signals for the dashboard: whether the trading
// process is running, whether the host can reach the outside world, and the
// host uptime and load averages.
//
// Every probe is best effort. Connectivity checks are bounded by a hard
// timeout, counter reads fall back to zero values, and CheckHealth never
// returns an error or lets a panic escape. Only a failure to read the process
// table turns a health report into status "error".
package probe

import (
	"context"
	"time"
)

// Health statuses.
const (
	StatusHealthy = "healthy"
	StatusStopped = "stopped"
	StatusError   = "error"
)

// MaxTimeout bounds any single connectivity check.
const MaxTimeout = 5 * time.Second

// LoadAverage holds the 1, 5 and 15 minute load averages.
type LoadAverage [3]float64

// Probe is a source of host signals. HostProbe reads the real host, Fixed
// returns canned values for tests.
type Probe interface {
	ProcessRunning(ctx context.Context) (bool, error)
	NetworkReachable(ctx context.Context) bool
	Uptime(ctx context.Context) (uint64, error)
	LoadAverage(ctx context.Context) (LoadAverage, error)
}

// HealthReport is recomputed on every /api/health request.
type HealthReport struct {
	Status           string    `json:"status"`
	ProcessRunning   bool      `json:"process_running"`
	NetworkReachable bool      `json:"network_reachable"`
	Timestamp        time.Time `json:"timestamp"`
	UptimeSeconds    uint64    `json:"uptime_seconds"`
	Error            string    `json:"error,omitempty"`
}
