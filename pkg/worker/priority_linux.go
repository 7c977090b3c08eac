//go:build linux

package worker

import "golang.org/x/sys/unix"

// applyNativePriority sets the nice value of the calling OS thread.
func applyNativePriority(p Priority) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), p.Nice())
}
