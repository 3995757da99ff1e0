package collector

import (
	"context"
	"os"

	"github.com/watchtowerx/beacon/internal/models"
	"github.com/watchtowerx/beacon/internal/probe"
)

// PermissionProbe audits what the process may do with critical paths.
type PermissionProbe struct {
	paths map[string]string
}

// NewPermissionProbe creates a probe over name -> path entries.
func NewPermissionProbe(paths map[string]string) *PermissionProbe {
	return &PermissionProbe{paths: paths}
}

// Name returns the probe identifier.
func (p *PermissionProbe) Name() string { return "permissions" }

// Collect returns existence, readability, and writability per path. A
// missing path reports all three as false.
func (p *PermissionProbe) Collect(context.Context) probe.Result[map[string]models.PathAccess] {
	out := make(map[string]models.PathAccess, len(p.paths))
	for name, path := range p.paths {
		info, err := os.Stat(path)
		if err != nil {
			out[name] = models.PathAccess{}
			continue
		}
		out[name] = models.PathAccess{
			Exists:   true,
			Readable: readable(path, info),
			Writable: writable(path, info),
		}
	}
	return probe.OK(out)
}
