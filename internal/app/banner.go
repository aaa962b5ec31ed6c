package app

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	psnet "github.com/shirou/gopsutil/net"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: JSON at info and above, a console
// encoder when level is debug.
func NewLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Banner is the startup text printed to the terminal.
func (a *App) Banner(ctx context.Context) string {
	port := a.Port()
	var sb strings.Builder
	sb.WriteString("Trading Dashboard\n")
	fmt.Fprintf(&sb, "  Local:    %s\n", a.URL())
	for _, ip := range networkIPs(ctx) {
		fmt.Fprintf(&sb, "  Network:  http://%s\n", net.JoinHostPort(ip, fmt.Sprint(port)))
	}
	sb.WriteString("  Endpoints:\n")
	seen := map[string]bool{}
	for _, rt := range a.Routes() {
		if seen[rt.Path] {
			continue
		}
		seen[rt.Path] = true
		fmt.Fprintf(&sb, "    %s\n", rt.Path)
	}
	sb.WriteString("Press Ctrl+C to stop\n")
	return sb.String()
}

// networkIPs lists non-loopback IPv4 addresses of interfaces that are up.
// Enumeration failures yield no addresses.
func networkIPs(ctx context.Context) []string {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil
	}
	var ips []string
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				ip = net.ParseIP(addr.Addr)
			}
			if ip == nil || ip.IsLoopback() || ip.To4() == nil {
				continue
			}
			ips = append(ips, ip.String())
		}
	}
	sort.Strings(ips)
	return ips
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
