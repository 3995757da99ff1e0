//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"beacon.yaml",
		filepath.Join(home, ".beacon", "config.yaml"),
		"/etc/beacon/beacon.yaml",
	}
}
