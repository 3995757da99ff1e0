//go:build !windows

package setup

import (
	"os"
	"path/filepath"
)

// ResolveConfigPath returns the config file location for mode.
func ResolveConfigPath(mode InstallMode) string {
	switch mode {
	case ModeUser:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".beacon", "config.yaml")
	case ModeSystem:
		return "/etc/beacon/beacon.yaml"
	default:
		return "beacon.yaml"
	}
}
