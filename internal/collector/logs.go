package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/watchtowerx/beacon/internal/probe"
)

// LogProbe reports the size of each application log file.
type LogProbe struct {
	dir     string
	pattern string
}

// NewLogProbe creates a probe over dir/pattern.
func NewLogProbe(dir, pattern string) *LogProbe {
	if pattern == "" {
		pattern = "*.log"
	}
	return &LogProbe{dir: dir, pattern: pattern}
}

// Name returns the probe identifier.
func (l *LogProbe) Name() string { return "logs" }

// Collect maps base file name to size in bytes. A missing directory
// yields an empty map.
func (l *LogProbe) Collect(context.Context) probe.Result[map[string]int64] {
	out := map[string]int64{}
	if _, err := os.Stat(l.dir); err != nil {
		return probe.Degrade(out, err)
	}
	matches, err := filepath.Glob(filepath.Join(l.dir, l.pattern))
	if err != nil {
		return probe.Degrade(out, fmt.Errorf("glob %s: %w", l.pattern, err))
	}
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out[filepath.Base(path)] = info.Size()
	}
	return probe.OK(out)
}
