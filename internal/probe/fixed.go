package probe

import (
	"context"
	"time"
)

// Fixed is a Probe returning canned values, so tests never depend on the
// host's process table or network.
type Fixed struct {
	Running       bool
	Reachable     bool
	UptimeSeconds uint64
	Load          LoadAverage

	ProcessErr error
	UptimeErr  error
	LoadErr    error

	// NetworkDelay simulates a slow connectivity check; the check reports
	// unreachable if ctx expires first.
	NetworkDelay time.Duration
	// PanicOnProcess makes ProcessRunning panic with this value when non-nil.
	PanicOnProcess any
}

func (f *Fixed) ProcessRunning(context.Context) (bool, error) {
	if f.PanicOnProcess != nil {
		panic(f.PanicOnProcess)
	}
	if f.ProcessErr != nil {
		return false, f.ProcessErr
	}
	return f.Running, nil
}

func (f *Fixed) NetworkReachable(ctx context.Context) bool {
	if f.NetworkDelay <= 0 {
		return f.Reachable
	}
	t := time.NewTimer(f.NetworkDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return f.Reachable
	}
}

func (f *Fixed) Uptime(context.Context) (uint64, error) {
	if f.UptimeErr != nil {
		return 0, f.UptimeErr
	}
	return f.UptimeSeconds, nil
}

func (f *Fixed) LoadAverage(context.Context) (LoadAverage, error) {
	if f.LoadErr != nil {
		return LoadAverage{}, f.LoadErr
	}
	return f.Load, nil
}
