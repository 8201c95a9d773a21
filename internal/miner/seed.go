package miner

import (
	crand "crypto/rand"
	"encoding/binary"
	"time"
)

// Seed derives per-worker starting nonces. It is seeded once from the OS
// entropy source (wall clock as a fallback) and mixed per index, so distinct
// workers land in disjoint nonce regions with overwhelming probability.
// Not cryptographic; duplicate coverage across workers is tolerated.
type Seed struct {
	base uint64
}

// NewSeed draws a fresh base seed.
func NewSeed() *Seed {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		binary.LittleEndian.PutUint64(buf[:], uint64(time.Now().UnixNano()))
	}
	return &Seed{base: binary.LittleEndian.Uint64(buf[:])}
}

// NonceFor returns the starting nonce for worker index.
func (s *Seed) NonceFor(index uint32) uint32 {
	x := s.base + uint64(index+1)*0x9e3779b97f4a7c15
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return uint32(x)
}
