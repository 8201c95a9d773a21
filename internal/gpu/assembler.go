// Package gpu drives optional OpenCL accelerator devices. The device layer
// itself is external; this package owns the kernel bytecode variant, the
// per-device mining loop and result scanning. A device must produce results
// byte-identical to the reference interpreter for every (header, program).
package gpu

import (
	"encoding/binary"

	"github.com/dynamocoin/go-dynminer/internal/program"
)

// Assemble translates interpreter bytecode into the kernel variant. Opcode
// tags are shared with the interpreter, with three differences: MEMGEN
// carries only the size word (the kernel always fills with single SHA-256),
// READMEM operands are resolved to the 32-bit indexing word at assembly
// time, and the stream is terminated by the END tag. Also reports the
// largest MEMGEN size, used to size per-lane device memory.
func Assemble(code program.Bytecode, prevHash, merkleRoot []byte) ([]uint32, uint32) {
	out := make([]uint32, 0, len(code)+1)
	var largest uint32

	pos := 0
	for pos < len(code) {
		op := program.Op(code[pos])
		pos++
		switch op {
		case program.OpAdd, program.OpXor, program.OpMemAdd, program.OpMemXor:
			if len(code)-pos < 8 {
				pos = len(code)
				break
			}
			out = append(out, uint32(op))
			out = append(out, code[pos:pos+8]...)
			pos += 8
		case program.OpShaSingle:
			out = append(out, uint32(op))
		case program.OpShaLoop:
			if len(code)-pos < 1 {
				pos = len(code)
				break
			}
			out = append(out, uint32(op), code[pos])
			pos++
		case program.OpMemGen:
			if len(code)-pos < 2 {
				pos = len(code)
				break
			}
			size := code[pos+1]
			out = append(out, uint32(program.OpMemGen), size)
			if size > largest {
				largest = size
			}
			pos += 2
		case program.OpMemSelect:
			if len(code)-pos < 1 {
				pos = len(code)
				break
			}
			region := program.Region(code[pos])
			pos++
			switch region {
			case program.RegionMerkle:
				out = append(out, uint32(program.OpMemSelect), binary.LittleEndian.Uint32(merkleRoot[:4]))
			case program.RegionPrevHash:
				out = append(out, uint32(program.OpMemSelect), binary.LittleEndian.Uint32(prevHash[:4]))
			}
		default:
			// The interpreter compiler never emits other tags; stop rather
			// than misparse operand words as opcodes.
			pos = len(code)
		}
	}

	out = append(out, uint32(program.OpEnd))
	return out, largest
}
