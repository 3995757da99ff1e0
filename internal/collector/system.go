package collector

import (
	"context"

	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/platform"
	"github.com/watchtowerx/beacon/internal/probe"
)

// DiskProbe reports the used share of the root filesystem.
type DiskProbe struct{ platform platform.Platform }

// NewDiskProbe creates a disk usage probe.
func NewDiskProbe(p platform.Platform) *DiskProbe { return &DiskProbe{platform: p} }

// Name returns the probe identifier.
func (d *DiskProbe) Name() string { return "disk" }

// Collect returns disk usage as a percentage with two decimals.
func (d *DiskProbe) Collect(ctx context.Context) probe.Result[float64] {
	return percent(d.platform.DiskPercent(ctx))
}

// MemoryProbe reports the used share of physical memory.
type MemoryProbe struct{ platform platform.Platform }

// NewMemoryProbe creates a memory usage probe.
func NewMemoryProbe(p platform.Platform) *MemoryProbe { return &MemoryProbe{platform: p} }

// Name returns the probe identifier.
func (m *MemoryProbe) Name() string { return "ram" }

// Collect returns memory usage as a percentage with two decimals.
func (m *MemoryProbe) Collect(ctx context.Context) probe.Result[float64] {
	return percent(m.platform.MemoryPercent(ctx))
}

// CPUProbe reports processor load.
type CPUProbe struct{ platform platform.Platform }

// NewCPUProbe creates a CPU load probe.
func NewCPUProbe(p platform.Platform) *CPUProbe { return &CPUProbe{platform: p} }

// Name returns the probe identifier.
func (c *CPUProbe) Name() string { return "cpu" }

// Collect returns processor load clamped to 0-100. Load averages above
// the core count saturate at 100.
func (c *CPUProbe) Collect(ctx context.Context) probe.Result[float64] {
	return percent(c.platform.CPUPercent(ctx))
}

func percent(v float64, err error) probe.Result[float64] {
	if err != nil {
		return probe.Degrade(0.0, err)
	}
	return probe.OK(probe.Round2(probe.ClampPercent(v)))
}

// NetworkProbe reports byte counters of the primary interface.
type NetworkProbe struct{ platform platform.Platform }

// NewNetworkProbe creates a network counter probe.
func NewNetworkProbe(p platform.Platform) *NetworkProbe { return &NetworkProbe{platform: p} }

// Name returns the probe identifier.
func (n *NetworkProbe) Name() string { return "network" }

// Collect returns cumulative rx/tx bytes, or zeros when no interface matches.
func (n *NetworkProbe) Collect(ctx context.Context) probe.Result[models.NetworkIO] {
	c, err := n.platform.NetworkIO(ctx)
	if err != nil {
		return probe.Degrade(models.NetworkIO{}, err)
	}
	return probe.OK(models.NetworkIO{Rx: c.Rx, Tx: c.Tx})
}

// DiskIOProbe reports block device operation rates.
type DiskIOProbe struct{ platform platform.Platform }

// NewDiskIOProbe creates a disk I/O probe.
func NewDiskIOProbe(p platform.Platform) *DiskIOProbe { return &DiskIOProbe{platform: p} }

// Name returns the probe identifier.
func (d *DiskIOProbe) Name() string { return "disk_io" }

// Collect returns reads and writes per second rounded to two decimals.
func (d *DiskIOProbe) Collect(ctx context.Context) probe.Result[models.DiskIO] {
	r, err := d.platform.DiskIO(ctx)
	if err != nil {
		return probe.Degrade(models.DiskIO{}, err)
	}
	return probe.OK(models.DiskIO{
		Reads:  probe.Round2(nonNegative(r.Reads)),
		Writes: probe.Round2(nonNegative(r.Writes)),
	})
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}

// UptimeProbe reports seconds since boot.
type UptimeProbe struct{ platform platform.Platform }

// NewUptimeProbe creates an uptime probe.
func NewUptimeProbe(p platform.Platform) *UptimeProbe { return &UptimeProbe{platform: p} }

// Name returns the probe identifier.
func (u *UptimeProbe) Name() string { return "uptime" }

// Collect returns uptime in seconds.
func (u *UptimeProbe) Collect(ctx context.Context) probe.Result[uint64] {
	secs, err := u.platform.Uptime(ctx)
	if err != nil {
		return probe.Degrade(uint64(0), err)
	}
	return probe.OK(secs)
}
