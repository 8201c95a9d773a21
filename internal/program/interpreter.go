package program

import (
	"crypto/sha256"
	"encoding/binary"
)

// Mempool is the scratch memory region materialized by MEMGEN. Each worker
// owns exactly one; it is reused across jobs and grows monotonically, never
// shrinking. The interpreter makes no assumption about prior contents.
type Mempool struct {
	words []uint32
}

// NewMempool allocates a pool with room for the given number of 32-byte cells.
func NewMempool(cells int) *Mempool {
	return &Mempool{words: make([]uint32, cells*8)}
}

// Cells returns the pool's current capacity in 32-byte cells.
func (m *Mempool) Cells() int {
	return len(m.words) / 8
}

func (m *Mempool) ensure(cells uint32) {
	need := int(cells) * 8
	if len(m.words) >= need {
		return
	}
	grown := make([]uint32, need)
	copy(grown, m.words)
	m.words = grown
}

// Execute evaluates bytecode over an 80-byte block header and returns the
// 256-bit digest. prevHash and merkleRoot supply the READMEM index sources;
// merkleRoot is the reversed copy held by the work record, not the header
// field. A truncated bytecode stream terminates evaluation on the last good
// state instead of failing; memory ops before any MEMGEN are skipped.
func Execute(header []byte, code Bytecode, prevHash, merkleRoot []byte, pool *Mempool) [32]byte {
	var state [8]uint32
	loadState(&state, sha256.Sum256(header[:80]))

	var memSize uint32
	pos := 0
	remaining := func() int { return len(code) - pos }

	for pos < len(code) {
		op := Op(code[pos])
		pos++
		switch op {
		case OpAdd:
			if remaining() < 8 {
				return serializeState(&state)
			}
			for i := 0; i < 8; i++ {
				state[i] += code[pos+i]
			}
			pos += 8
		case OpXor:
			if remaining() < 8 {
				return serializeState(&state)
			}
			for i := 0; i < 8; i++ {
				state[i] ^= code[pos+i]
			}
			pos += 8
		case OpShaSingle:
			hashState(&state)
		case OpShaLoop:
			if remaining() < 1 {
				return serializeState(&state)
			}
			iters := code[pos]
			pos++
			for i := uint32(0); i < iters; i++ {
				hashState(&state)
			}
		case OpMemGen:
			if remaining() < 2 {
				return serializeState(&state)
			}
			inner := Op(code[pos])
			size := code[pos+1]
			pos += 2
			pool.ensure(size)
			memSize = size
			if inner == OpShaSingle {
				for i := uint32(0); i < memSize; i++ {
					hashState(&state)
					copy(pool.words[i*8:], state[:])
				}
			}
		case OpMemAdd:
			if remaining() < 8 {
				return serializeState(&state)
			}
			if memSize != 0 {
				for i := uint32(0); i < memSize; i++ {
					for j := 0; j < 8; j++ {
						pool.words[i*8+uint32(j)] += code[pos+j]
					}
				}
			}
			pos += 8
		case OpMemXor:
			if remaining() < 8 {
				return serializeState(&state)
			}
			if memSize != 0 {
				for i := uint32(0); i < memSize; i++ {
					for j := 0; j < 8; j++ {
						pool.words[i*8+uint32(j)] ^= code[pos+j]
					}
				}
			}
			pos += 8
		case OpMemSelect:
			if remaining() < 1 {
				return serializeState(&state)
			}
			region := Region(code[pos])
			pos++
			if memSize == 0 {
				continue
			}
			switch region {
			case RegionMerkle:
				idx := binary.LittleEndian.Uint32(merkleRoot[:4]) % memSize
				copy(state[:], pool.words[idx*8:idx*8+8])
			case RegionPrevHash:
				idx := binary.LittleEndian.Uint32(prevHash[:4]) % memSize
				copy(state[:], pool.words[idx*8:idx*8+8])
			}
		default:
			// Unknown opcodes are a no-op for forward compatibility.
		}
	}

	return serializeState(&state)
}

func loadState(state *[8]uint32, digest [32]byte) {
	for i := 0; i < 8; i++ {
		state[i] = binary.LittleEndian.Uint32(digest[i*4:])
	}
}

func serializeState(state *[8]uint32) [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], state[i])
	}
	return out
}

func hashState(state *[8]uint32) {
	buf := serializeState(state)
	loadState(state, sha256.Sum256(buf[:]))
}
