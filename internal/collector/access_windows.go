//go:build windows

package collector

import (
	"io/fs"
	"os"
)

// Windows has no access(2); open the path instead.
func readable(path string, info fs.FileInfo) bool {
	if info.IsDir() {
		_, err := os.ReadDir(path)
		return err == nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func writable(path string, info fs.FileInfo) bool {
	if info.Mode().Perm()&0o200 == 0 {
		return false
	}
	// The read-only attribute is all a directory exposes without writing into it.
	if info.IsDir() {
		return true
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
