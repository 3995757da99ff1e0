package collector

import (
	"context"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/watchtowerx/beacon/internal/probe"
)

type hostInfoFunc func(ctx context.Context) (*host.InfoStat, error)

// RuntimeProbe reports the versions of the probe binary and the host OS.
// Host details are read once per process since they do not change.
type RuntimeProbe struct {
	version  string
	platform string
	info     hostInfoFunc

	once  sync.Once
	cache probe.Result[map[string]string]
}

// NewRuntimeProbe creates a runtime probe for the given build version and
// platform name.
func NewRuntimeProbe(version, platformName string) *RuntimeProbe {
	return &RuntimeProbe{
		version:  version,
		platform: platformName,
		info:     host.InfoWithContext,
	}
}

// Name returns the probe identifier.
func (r *RuntimeProbe) Name() string { return "runtime" }

// Collect returns version strings. On a host info failure the Go runtime
// values are still reported.
func (r *RuntimeProbe) Collect(ctx context.Context) probe.Result[map[string]string] {
	r.once.Do(func() {
		r.cache = r.collect(ctx)
	})
	out := make(map[string]string, len(r.cache.Value))
	for k, v := range r.cache.Value {
		out[k] = v
	}
	return probe.Result[map[string]string]{Value: out, Reason: r.cache.Reason, Err: r.cache.Err}
}

func (r *RuntimeProbe) collect(ctx context.Context) probe.Result[map[string]string] {
	out := map[string]string{
		"go":       runtime.Version(),
		"beacon":   r.version,
		"platform": r.platform,
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
	}
	info, err := r.info(ctx)
	if err != nil {
		return probe.Degrade(out, err)
	}
	if info.Platform != "" {
		out["os"] = info.Platform
	}
	out["os_version"] = info.PlatformVersion
	out["kernel"] = info.KernelVersion
	return probe.OK(out)
}
