//go:build !windows

package setup

import (
	"fmt"
	"os"
)

// CheckElevation verifies the process has root privileges when needed.
// Returns nil unless mode is ModeSystem.
func CheckElevation(mode InstallMode) error {
	if mode != ModeSystem {
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("system-wide configuration requires root privileges\n\nRun with sudo:\n  sudo %s -init -mode system", os.Args[0])
	}
	return nil
}
