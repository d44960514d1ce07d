//go:build unix

package server

import (
	"golang.org/x/sys/unix"
)

func terminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

func killProcess(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

// processAlive probes pid with signal 0. EPERM means the process exists but
// belongs to someone else.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
