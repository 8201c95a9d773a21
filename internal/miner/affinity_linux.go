//go:build linux

package miner

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU binds the calling goroutine's OS thread to the given CPU. The
// thread stays locked so the affinity mask keeps applying to this worker.
func pinToCPU(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
