//go:build windows

// Windows-specific Platform implementation.
// Memory and processor load are read through wmic; network counters, block
// I/O and uptime are not collected on Windows.
package platform

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/watchtowerx/beacon/internal/probe"
)

// WindowsPlatform implements Platform for Windows systems.
type WindowsPlatform struct {
	runner    Runner
	diskUsage usageFunc
}

// New creates a new Windows platform instance.
func New() Platform {
	return &WindowsPlatform{runner: ExecRunner{}, diskUsage: disk.UsageWithContext}
}

// Name returns the platform identifier.
func (p *WindowsPlatform) Name() string { return "windows" }

// DiskPercent returns the used share of the system drive.
func (p *WindowsPlatform) DiskPercent(ctx context.Context) (float64, error) {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	return diskPercent(ctx, p.diskUsage, drive+`\`)
}

// MemoryPercent reads physical memory figures from WMI.
func (p *WindowsPlatform) MemoryPercent(ctx context.Context) (float64, error) {
	out, err := run(ctx, p.runner, "wmic", "OS", "get", "FreePhysicalMemory,TotalVisibleMemorySize", "/Value")
	if err != nil {
		return 0, err
	}
	return parseWMIMemory(string(out))
}

// CPUPercent reads the instantaneous processor load from WMI.
func (p *WindowsPlatform) CPUPercent(ctx context.Context) (float64, error) {
	out, err := run(ctx, p.runner, "wmic", "cpu", "get", "loadpercentage", "/Value")
	if err != nil {
		return 0, err
	}
	return parseWMILoad(string(out))
}

// NetworkIO is not collected on Windows.
func (p *WindowsPlatform) NetworkIO(context.Context) (Counters, error) {
	return Counters{}, fmt.Errorf("network counters on windows: %w", probe.ErrUnsupported)
}

// DiskIO is not collected on Windows.
func (p *WindowsPlatform) DiskIO(context.Context) (Rates, error) {
	return Rates{}, fmt.Errorf("block i/o on windows: %w", probe.ErrUnsupported)
}

// Uptime is not collected on Windows.
func (p *WindowsPlatform) Uptime(context.Context) (uint64, error) {
	return 0, fmt.Errorf("uptime on windows: %w", probe.ErrUnsupported)
}
