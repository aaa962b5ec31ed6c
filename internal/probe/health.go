package probe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Checker derives a HealthReport from a Probe. A failing signal is logged at
// WARN when it starts failing and at INFO when it recovers; repeats while it
// stays down go to DEBUG so polling cannot flood the dashboard log.
type Checker struct {
	probe   Probe
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	healthFailing atomic.Bool
	loadFailing   atomic.Bool
}

// NewChecker creates a Checker. timeout bounds the connectivity check and is
// clamped to MaxTimeout.
func NewChecker(p Probe, timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{probe: p, timeout: timeout, logger: logger, now: time.Now}
}

// CheckHealth collects all signals concurrently. It never fails: a process
// table error or a panic inside the probe yields status "error" with the
// failure text.
func (c *Checker) CheckHealth(ctx context.Context) HealthReport {
	var (
		running   bool
		reachable bool
		uptime    uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("process", func() error {
		ok, err := c.probe.ProcessRunning(gctx)
		if err != nil {
			return fmt.Errorf("process check: %w", err)
		}
		running = ok
		return nil
	}))
	g.Go(guard("connectivity", func() error {
		// Detached from gctx so a process failure does not mark the network down.
		netCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		reachable = c.probe.NetworkReachable(netCtx)
		return nil
	}))
	g.Go(guard("uptime", func() error {
		v, err := c.probe.Uptime(gctx)
		if err != nil {
			c.logger.Debug("uptime unavailable", zap.Error(err))
			return nil
		}
		uptime = v
		return nil
	}))

	err := g.Wait()
	report := HealthReport{
		Timestamp:        c.now(),
		ProcessRunning:   running,
		NetworkReachable: reachable,
		UptimeSeconds:    uptime,
	}
	switch {
	case err != nil:
		c.degraded(&c.healthFailing, "health check failed", zap.Error(err))
		report.Status = StatusError
		report.Error = err.Error()
	case running:
		report.Status = StatusHealthy
	default:
		report.Status = StatusStopped
	}
	if err == nil {
		c.recovered(&c.healthFailing, "health check recovered")
	}
	return report
}

// SampleLoad returns the host load averages, or zeros when they cannot be read.
func (c *Checker) SampleLoad(ctx context.Context) (avg LoadAverage) {
	defer func() {
		if r := recover(); r != nil {
			c.degraded(&c.loadFailing, "load sample panicked", zap.Any("panic", r))
			avg = LoadAverage{}
		}
	}()
	v, err := c.probe.LoadAverage(ctx)
	if err != nil {
		c.degraded(&c.loadFailing, "load sample failed", zap.Error(err))
		return LoadAverage{}
	}
	c.recovered(&c.loadFailing, "load sample recovered")
	return v
}

func (c *Checker) degraded(failing *atomic.Bool, msg string, fields ...zap.Field) {
	if failing.Swap(true) {
		c.logger.Debug(msg, fields...)
		return
	}
	c.logger.Warn(msg, fields...)
}

func (c *Checker) recovered(failing *atomic.Bool, msg string) {
	if failing.Swap(false) {
		c.logger.Info(msg)
	}
}

// guard converts a panic in fn into an error naming the signal.
func guard(signal string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s check panicked: %v", signal, r)
			}
		}()
		return fn()
	}
}
