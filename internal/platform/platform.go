// Package platform provides the OS abstraction layer behind the system probes.
// One implementation is selected at build time: POSIX hosts read gopsutil and
// shell utilities, Windows hosts read WMI output. Methods return raw values;
// rounding and clamping belong to the probes.
package platform

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/watchtowerx/beacon/internal/probe"
)

// Platform provides host statistics for the system probes.
type Platform interface {
	// Name returns the platform family (posix, windows).
	Name() string

	// DiskPercent returns the used share of the root filesystem, 0-100.
	DiskPercent(ctx context.Context) (float64, error)

	// MemoryPercent returns the used share of physical memory, 0-100.
	MemoryPercent(ctx context.Context) (float64, error)

	// CPUPercent returns the current processor load, 0-100 (may exceed 100
	// on overloaded POSIX hosts before clamping).
	CPUPercent(ctx context.Context) (float64, error)

	// NetworkIO returns byte counters of the first ethernet/wifi interface.
	NetworkIO(ctx context.Context) (Counters, error)

	// DiskIO returns read/write operation rates of the first block device.
	DiskIO(ctx context.Context) (Rates, error)

	// Uptime returns seconds since boot.
	Uptime(ctx context.Context) (uint64, error)
}

// Counters are cumulative network byte counters.
type Counters struct {
	Rx uint64
	Tx uint64
}

// Rates are block device operations per second.
type Rates struct {
	Reads  float64
	Writes float64
}

// Runner executes an external command and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Output runs the command bound to ctx.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// run executes a command and normalizes "binary missing" to probe.ErrUnavailable.
func run(ctx context.Context, r Runner, name string, args ...string) ([]byte, error) {
	out, err := r.Output(ctx, name, args...)
	if err != nil {
		if probe.Classify(err) == probe.ReasonUnavailable {
			return nil, fmt.Errorf("%s: %w", name, probe.ErrUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty output: %w", name, probe.ErrUnavailable)
	}
	return out, nil
}

type usageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// diskPercent computes 1 - free/total of the filesystem holding root.
func diskPercent(ctx context.Context, usage usageFunc, root string) (float64, error) {
	u, err := usage(ctx, root)
	if err != nil {
		return 0, fmt.Errorf("disk usage %s: %w", root, err)
	}
	if u.Total == 0 {
		return 0, fmt.Errorf("disk usage %s: zero total size", root)
	}
	return (1 - float64(u.Free)/float64(u.Total)) * 100, nil
}
