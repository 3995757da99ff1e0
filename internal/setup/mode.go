package setup

import "fmt"

// InstallMode selects where the config file is written. Each mode maps to
// one of the locations the loader searches.
type InstallMode int

const (
	// ModeLocal writes beacon.yaml in the working directory, next to the
	// monitored application.
	ModeLocal InstallMode = iota
	// ModeUser writes the per-user config.
	ModeUser
	// ModeSystem writes the machine-wide config and needs elevation.
	ModeSystem
)

func (m InstallMode) String() string {
	switch m {
	case ModeLocal:
		return "local"
	case ModeUser:
		return "user"
	case ModeSystem:
		return "system"
	default:
		return "unknown"
	}
}

// ParseMode parses a -mode flag value.
func ParseMode(s string) (InstallMode, error) {
	switch s {
	case "local":
		return ModeLocal, nil
	case "user":
		return ModeUser, nil
	case "system":
		return ModeSystem, nil
	default:
		return 0, fmt.Errorf("invalid install mode %q (expected \"local\", \"user\" or \"system\")", s)
	}
}
