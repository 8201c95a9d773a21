package testutil

import "strings"

// Fixture fields for a minimal mining.notify payload.
const (
	FixtureJobID  = "1b"
	FixtureCoinb1 = "01000000010000000000000000000000"
	FixtureCoinb2 = "ffffffff0100f2052a010000001976a914"
	FixtureNBits  = "1d00ffff"
	FixtureNTime  = "62e2bc40"
)

// FixturePrevHash is a 32-byte previous block hash in hex, as received.
var FixturePrevHash = strings.Repeat("1122334455667788", 4)

// NotifyParams builds a 9-element mining.notify params array around the
// given job id and hash program.
func NotifyParams(jobID, prog string) []interface{} {
	return []interface{}{
		jobID,
		FixturePrevHash,
		FixtureCoinb1,
		FixtureCoinb2,
		[]interface{}{},
		"20000000",
		FixtureNBits,
		FixtureNTime,
		prog,
	}
}
