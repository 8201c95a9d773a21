package work

import "math"

// diff1TargetPrefix is the 64-bit prefix of the conventional difficulty-1
// target (0x00000000FFFF0000...).
const diff1TargetPrefix = 0x00000000FFFF0000

// targetMultiplier aligns the miner's 64-bit prefix comparison with the
// pool's 256-bit target convention.
const targetMultiplier = 65536

// TargetForDifficulty converts a pool difficulty to the 64-bit share target.
// Difficulties below 1 are clamped up; the result saturates at 2^64-1.
func TargetForDifficulty(diff float64) uint64 {
	diff = math.Max(diff, 1)
	target := float64(diff1TargetPrefix) / diff * targetMultiplier
	if target >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(target)
}
