package platform

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/watchtowerx/beacon/internal/probe"
)

// errNoDevice marks hosts without a matching interface or block device.
var errNoDevice = fmt.Errorf("no matching device: %w", probe.ErrUnavailable)

var (
	// interfacePattern matches ethernet and wifi interface names
	// (eth0, enp3s0, ens33, en0, wlan0, wlp2s0).
	interfacePattern = regexp.MustCompile(`^(eth|en|wl)`)

	// devicePattern matches physical block devices reported by iostat.
	devicePattern = regexp.MustCompile(`^(sd|nvme|vd|xvd|hd|mmcblk)`)
)

// parseFreeOutput extracts the used memory share from `free -m`.
// The second line is expected to be "Mem: total used ...".
func parseFreeOutput(out string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("free: short output (%d lines)", len(lines))
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 3 {
		return 0, fmt.Errorf("free: malformed line %q", lines[1])
	}
	total, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, fmt.Errorf("free: total %q: %w", fields[1], err)
	}
	used, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("free: used %q: %w", fields[2], err)
	}
	if total <= 0 {
		return 0, fmt.Errorf("free: non-positive total %v", total)
	}
	return used / total * 100, nil
}

// parseWMIValues parses `wmic ... /Value` output into key -> values.
// Keys repeat once per instance (one LoadPercentage line per socket).
func parseWMIValues(out string) map[string][]string {
	values := make(map[string][]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		values[key] = append(values[key], strings.TrimSpace(value))
	}
	return values
}

// parseWMIMemory computes used memory share from FreePhysicalMemory and
// TotalVisibleMemorySize (both in KiB).
func parseWMIMemory(out string) (float64, error) {
	values := parseWMIValues(out)
	free, err := firstFloat(values, "FreePhysicalMemory")
	if err != nil {
		return 0, err
	}
	total, err := firstFloat(values, "TotalVisibleMemorySize")
	if err != nil {
		return 0, err
	}
	if total <= 0 {
		return 0, fmt.Errorf("wmic: non-positive total memory %v", total)
	}
	return (total - free) / total * 100, nil
}

// parseWMILoad averages LoadPercentage over every reported processor.
func parseWMILoad(out string) (float64, error) {
	raw := parseWMIValues(out)["LoadPercentage"]
	var sum float64
	var n int
	for _, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("wmic: no LoadPercentage values")
	}
	return sum / float64(n), nil
}

func firstFloat(values map[string][]string, key string) (float64, error) {
	raw, ok := values[key]
	if !ok || len(raw) == 0 {
		return 0, fmt.Errorf("wmic: missing %s", key)
	}
	f, err := strconv.ParseFloat(raw[0], 64)
	if err != nil {
		return 0, fmt.Errorf("wmic: %s %q: %w", key, raw[0], err)
	}
	return f, nil
}

// parseIostatJSON reads r/s and w/s of the first matching device from the
// last sample of `iostat -d -x -o JSON`.
func parseIostatJSON(out []byte) (Rates, error) {
	if !gjson.ValidBytes(out) {
		return Rates{}, fmt.Errorf("iostat: invalid JSON output")
	}
	samples := gjson.GetBytes(out, "sysstat.hosts.0.statistics").Array()
	if len(samples) == 0 {
		return Rates{}, fmt.Errorf("iostat: no statistics samples")
	}

	var (
		rates Rates
		found bool
	)
	samples[len(samples)-1].Get("disk").ForEach(func(_, dev gjson.Result) bool {
		if !devicePattern.MatchString(dev.Get("disk_device").String()) {
			return true
		}
		rates = Rates{
			Reads:  dev.Get("r/s").Float(),
			Writes: dev.Get("w/s").Float(),
		}
		found = true
		return false
	})
	if !found {
		return Rates{}, fmt.Errorf("iostat: %w", errNoDevice)
	}
	return rates, nil
}

// firstInterface returns the lexically-first name matching the ethernet/wifi
// patterns, so the choice is stable across runs.
func firstInterface(names []string) (string, bool) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if interfacePattern.MatchString(n) {
			return n, true
		}
	}
	return "", false
}
