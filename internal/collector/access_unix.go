//go:build !windows

package collector

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

func readable(path string, _ fs.FileInfo) bool {
	return unix.Access(path, unix.R_OK) == nil
}

func writable(path string, _ fs.FileInfo) bool {
	return unix.Access(path, unix.W_OK) == nil
}
