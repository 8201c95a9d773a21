// Package work defines the per-job work record, the shared slot workers
// clone it from, and the pool-difficulty-to-target conversion.
package work

import (
	"sync"
	"sync/atomic"

	"github.com/dynamocoin/go-dynminer/internal/program"
	"github.com/dynamocoin/go-dynminer/internal/shares"
)

// Work is the immutable-per-job bundle handed to workers. NativeData is the
// 80-byte header with a zero nonce; PrevBlockHash is raw as received;
// MerkleRoot is the fully reversed copy of the coinbase double-SHA, used
// only for READMEM MERKLE indexing (the header carries the unreversed form).
type Work struct {
	Num           uint32
	JobID         string
	HexNtime      string
	PrevBlockHash [32]byte
	MerkleRoot    [32]byte
	ShareTarget   uint64
	NativeData    [80]byte

	Bytecode program.Bytecode

	programText string
}

// SetProgram recompiles the hash program iff the text differs from the one
// previously seen. Reports whether a recompile happened. The program rarely
// changes between jobs, so the prior bytecode is reused on a match.
func (w *Work) SetProgram(text string) bool {
	if text == w.programText {
		return false
	}
	w.programText = text
	w.Bytecode = program.Compile(text)
	return true
}

// ProgramText returns the last program string passed to SetProgram.
func (w *Work) ProgramText() string {
	return w.programText
}

// SetDifficulty updates the share target from a pool difficulty.
func (w *Work) SetDifficulty(diff float64) {
	w.ShareTarget = TargetForDifficulty(diff)
}

// Share builds a share record for a passing nonce.
func (w *Work) Share(nonce [4]byte) shares.Share {
	return shares.Share{
		JobNum:   w.Num,
		JobID:    w.JobID,
		HexNtime: w.HexNtime,
		Nonce:    nonce,
	}
}

// Shared is the single current-job slot: one exclusive writer (the stratum
// reader goroutine), many readers (workers clone the record; the submitter
// polls the generation). The generation counter is atomic so readers can poll
// for job changes without taking the lock.
type Shared struct {
	mu   sync.RWMutex
	work Work
	num  atomic.Uint32
}

// Num returns the current job generation. Zero means no job published yet.
func (s *Shared) Num() uint32 {
	return s.num.Load()
}

// Clone copies the current work record under a shared lock. The clone's Num
// field equals the generation observed at copy time.
func (s *Shared) Clone() Work {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.work
}

// Publish replaces the current work record wholesale and bumps the
// generation. Pool jobs arrive through SetJob; Publish is the underlying
// primitive for alternative job sources.
func (s *Shared) Publish(w Work) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Num = s.num.Add(1)
	s.work = w
	return w.Num
}

// SetDifficulty updates the share target. The generation is bumped so that
// in-flight workers pick up the new target, but only once a first job has
// been published; before that, workers are still parked.
func (s *Shared) SetDifficulty(diff float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.work.SetDifficulty(diff)
	if s.work.Num != 0 {
		s.work.Num = s.num.Add(1)
	}
}
