package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/process"

	"github.com/GoPolymarket/trading-dashboard/internal/config"
)

// HostProbe reads signals from the local host.
type HostProbe struct {
	pattern *regexp.Regexp
	mode    string
	target  string
	timeout time.Duration
	self    int32

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
	ping func(ctx context.Context, host string) error
}

// NewHostProbe builds a HostProbe from config.
func NewHostProbe(cfg config.ProbeConfig) (*HostProbe, error) {
	pattern, err := regexp.Compile(cfg.ProcessPattern)
	if err != nil {
		return nil, fmt.Errorf("process pattern: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	d := &net.Dialer{}
	return &HostProbe{
		pattern: pattern,
		mode:    strings.ToLower(cfg.ConnectivityMode),
		target:  cfg.ConnectivityTarget,
		timeout: timeout,
		self:    int32(os.Getpid()),
		dial:    d.DialContext,
		ping:    systemPing,
	}, nil
}

// ProcessRunning reports whether any process other than this one has a
// command line matching the configured pattern, like `pgrep -f`.
func (h *HostProbe) ProcessRunning(ctx context.Context) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		if p.Pid == h.self {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil {
			// exited or not readable
			continue
		}
		if h.pattern.MatchString(cmdline) {
			return true, nil
		}
	}
	return false, nil
}

// NetworkReachable performs one connectivity check bounded by the probe timeout.
func (h *HostProbe) NetworkReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if h.mode == "ping" {
		return h.ping(ctx, hostOnly(h.target)) == nil
	}
	conn, err := h.dial(ctx, "tcp", h.target)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (h *HostProbe) Uptime(ctx context.Context) (uint64, error) {
	return host.UptimeWithContext(ctx)
}

func (h *HostProbe) LoadAverage(ctx context.Context) (LoadAverage, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return LoadAverage{}, err
	}
	return LoadAverage{avg.Load1, avg.Load5, avg.Load15}, nil
}

// systemPing sends a single ICMP echo through the system ping binary, which
// holds the raw-socket privilege this process usually lacks.
func systemPing(ctx context.Context, target string) error {
	countFlag := "-c"
	if runtime.GOOS == "windows" {
		countFlag = "-n"
	}
	return exec.CommandContext(ctx, "ping", countFlag, "1", target).Run()
}

func hostOnly(target string) string {
	if h, _, err := net.SplitHostPort(target); err == nil {
		return h
	}
	return target
}
