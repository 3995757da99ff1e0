//go:build windows

package setup

import (
	"os"
	"path/filepath"
)

// ResolveConfigPath returns the config file location for mode.
func ResolveConfigPath(mode InstallMode) string {
	switch mode {
	case ModeUser:
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Beacon", "config.yaml")
	case ModeSystem:
		return filepath.Join(os.Getenv("ProgramData"), "Beacon", "beacon.yaml")
	default:
		return "beacon.yaml"
	}
}
