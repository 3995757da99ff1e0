//go:build !windows

// POSIX Platform implementation.
// Disk, load, interface counters and uptime come from gopsutil; memory and
// block I/O come from the `free` and `iostat` utilities.
package platform

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/net"
)

// POSIXPlatform implements Platform for Linux, macOS and the BSDs.
type POSIXPlatform struct {
	runner Runner
	root   string

	diskUsage   usageFunc
	loadAvg     func(ctx context.Context) (*load.AvgStat, error)
	cpuCount    func(ctx context.Context, logical bool) (int, error)
	netCounters func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
	uptime      func(ctx context.Context) (uint64, error)
}

// New creates the POSIX platform backed by os/exec.
func New() Platform {
	return NewPOSIX(ExecRunner{})
}

// NewPOSIX creates a POSIX platform with the given command runner.
func NewPOSIX(r Runner) *POSIXPlatform {
	return &POSIXPlatform{
		runner:      r,
		root:        "/",
		diskUsage:   disk.UsageWithContext,
		loadAvg:     load.AvgWithContext,
		cpuCount:    cpu.CountsWithContext,
		netCounters: net.IOCountersWithContext,
		uptime:      host.UptimeWithContext,
	}
}

// Name returns the platform identifier.
func (p *POSIXPlatform) Name() string { return "posix" }

// DiskPercent returns the used share of the root filesystem.
func (p *POSIXPlatform) DiskPercent(ctx context.Context) (float64, error) {
	return diskPercent(ctx, p.diskUsage, p.root)
}

// MemoryPercent parses `free -m`.
func (p *POSIXPlatform) MemoryPercent(ctx context.Context) (float64, error) {
	out, err := run(ctx, p.runner, "free", "-m")
	if err != nil {
		return 0, err
	}
	return parseFreeOutput(string(out))
}

// CPUPercent normalizes the 1-minute load average by the logical core count.
func (p *POSIXPlatform) CPUPercent(ctx context.Context) (float64, error) {
	avg, err := p.loadAvg(ctx)
	if err != nil {
		return 0, fmt.Errorf("load average: %w", err)
	}
	cores, err := p.cpuCount(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("cpu count: %w", err)
	}
	if cores <= 0 {
		return 0, fmt.Errorf("cpu count: got %d logical cores", cores)
	}
	return avg.Load1 / float64(cores) * 100, nil
}

// NetworkIO reads counters of the first ethernet/wifi interface.
func (p *POSIXPlatform) NetworkIO(ctx context.Context) (Counters, error) {
	stats, err := p.netCounters(ctx, true)
	if err != nil {
		return Counters{}, fmt.Errorf("interface counters: %w", err)
	}
	byName := make(map[string]net.IOCountersStat, len(stats))
	names := make([]string, 0, len(stats))
	for _, s := range stats {
		byName[s.Name] = s
		names = append(names, s.Name)
	}
	name, ok := firstInterface(names)
	if !ok {
		return Counters{}, fmt.Errorf("ethernet or wifi interface: %w", errNoDevice)
	}
	s := byName[name]
	return Counters{Rx: s.BytesRecv, Tx: s.BytesSent}, nil
}

// DiskIO takes a one-second iostat sample.
func (p *POSIXPlatform) DiskIO(ctx context.Context) (Rates, error) {
	out, err := run(ctx, p.runner, "iostat", "-d", "-x", "-o", "JSON", "1", "2")
	if err != nil {
		return Rates{}, err
	}
	return parseIostatJSON(out)
}

// Uptime returns seconds since boot.
func (p *POSIXPlatform) Uptime(ctx context.Context) (uint64, error) {
	up, err := p.uptime(ctx)
	if err != nil {
		return 0, fmt.Errorf("uptime: %w", err)
	}
	return up, nil
}
