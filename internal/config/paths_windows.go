//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		"beacon.yaml",
		filepath.Join(local, "Beacon", "config.yaml"),
		filepath.Join(programData, "Beacon", "beacon.yaml"),
	}
}
