package util

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DoubleSHA256 computes SHA256(SHA256(data)), used for coinbase merkle roots.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// ReverseBytes returns a new slice with bytes reversed.
func ReverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// HashPrefix64 reads the first 8 bytes of a digest as a big-endian integer.
// This is the value compared against the 64-bit share target.
func HashPrefix64(digest []byte) uint64 {
	return binary.BigEndian.Uint64(digest[:8])
}

// Uint32ToBytes converts a uint32 to 4-byte little-endian.
func Uint32ToBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// HashToHex returns a reversed hex string of a hash (display order).
func HashToHex(hash [32]byte) string {
	return hex.EncodeToString(ReverseBytes(hash[:]))
}
