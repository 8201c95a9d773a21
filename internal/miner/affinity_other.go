//go:build !linux

package miner

// pinToCPU is a no-op on platforms without sched_setaffinity.
func pinToCPU(int) error {
	return nil
}
