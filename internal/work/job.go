package work

import (
	"encoding/hex"
	"fmt"

	"github.com/dynamocoin/go-dynminer/pkg/util"

	"go.uber.org/zap"
)

// headerVersion is the version word written at header bytes 0..3
// (little-endian 0x00000040).
var headerVersion = [4]byte{0x40, 0x00, 0x00, 0x00}

// Notify holds the decoded mining.notify parameters, in pool order. The
// merkle branch array (params[4]) and params[5] are accepted on the wire but
// carried nowhere: this chain commits to the coinbase double-SHA directly.
type Notify struct {
	JobID       string
	PrevHashHex string
	Coinb1      string
	Coinb2      string
	NBits       string
	NTime       string
	Program     string
}

// ParseNotify extracts the 9-element mining.notify params array.
func ParseNotify(params []interface{}) (Notify, error) {
	if len(params) != 9 {
		return Notify{}, fmt.Errorf("mining.notify: expected 9 params, got %d", len(params))
	}
	fields := make([]string, 0, 7)
	for _, i := range []int{0, 1, 2, 3, 6, 7, 8} {
		s, ok := params[i].(string)
		if !ok {
			return Notify{}, fmt.Errorf("mining.notify: param %d is not a string", i)
		}
		fields = append(fields, s)
	}
	return Notify{
		JobID:       fields[0],
		PrevHashHex: fields[1],
		Coinb1:      fields[2],
		Coinb2:      fields[3],
		NBits:       fields[4],
		NTime:       fields[5],
		Program:     fields[6],
	}, nil
}

// SetJob builds and publishes a new work record from a mining.notify. The
// writer lock is held for the whole build; the record is built in a copy and
// installed together with the generation bump as the last step, so a worker
// that observes the new generation always clones a fully built record and a
// notify that fails to decode leaves the slot untouched.
func (s *Shared) SetJob(n Notify, logger *zap.Logger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.work
	w.JobID = n.JobID
	w.HexNtime = n.NTime

	prev, err := util.DecodeHexExact(n.PrevHashHex, 32)
	if err != nil {
		return fmt.Errorf("decode prevhash: %w", err)
	}
	copy(w.PrevBlockHash[:], prev)

	coinb1, err := util.HexToBytes(n.Coinb1)
	if err != nil {
		return fmt.Errorf("decode coinb1: %w", err)
	}
	coinb2, err := util.HexToBytes(n.Coinb2)
	if err != nil {
		return fmt.Errorf("decode coinb2: %w", err)
	}
	coinbase := append(coinb1, coinb2...)

	copy(w.NativeData[0:4], headerVersion[:])
	copy(w.NativeData[4:36], w.PrevBlockHash[:])

	// The header carries the coinbase double-SHA as computed; the stored
	// MerkleRoot is the reversed copy that READMEM MERKLE indexes with.
	merkle := util.DoubleSHA256(coinbase)
	copy(w.NativeData[36:68], merkle[:])
	copy(w.MerkleRoot[:], util.ReverseBytes(merkle[:]))

	// ntime arrives as 4-byte big-endian hex and is byte-swapped into the
	// header. A malformed field leaves the header ntime zero for this job.
	copy(w.NativeData[68:72], []byte{0, 0, 0, 0})
	if ntime, err := hex.DecodeString(n.NTime); err == nil && len(ntime) == 4 {
		copy(w.NativeData[68:72], util.ReverseBytes(ntime))
	} else {
		logger.Warn("unexpected ntime field, header ntime left zero",
			zap.String("ntime", n.NTime),
			zap.String("job_id", n.JobID),
		)
	}

	nbits, err := util.DecodeHexExact(n.NBits, 4)
	if err != nil {
		return fmt.Errorf("decode nbits: %w", err)
	}
	copy(w.NativeData[72:76], util.ReverseBytes(nbits))

	if w.SetProgram(n.Program) {
		logger.Debug("hash program recompiled",
			zap.String("job_id", n.JobID),
			zap.Int("bytecode_words", len(w.Bytecode)),
		)
	}

	w.Num = s.num.Add(1)
	s.work = w
	return nil
}
