package gpu

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"github.com/dynamocoin/go-dynminer/internal/miner"
	"github.com/dynamocoin/go-dynminer/internal/shares"
	"github.com/dynamocoin/go-dynminer/internal/work"
	"github.com/dynamocoin/go-dynminer/pkg/util"

	"go.uber.org/zap"
)

// Device is the contract offered by the external OpenCL layer. One kernel
// invocation evaluates the loaded program for ComputeUnits consecutive
// nonces starting at the nonce in the submitted header, writing one 32-byte
// digest per lane into the result buffer. Digests must be byte-identical to
// the reference interpreter's output for the same header and program.
type Device interface {
	Name() string
	ComputeUnits() int

	// LoadProgram uploads kernel bytecode. largestMemGen sizes the
	// per-lane scratch memory on the device.
	LoadProgram(code []uint32, largestMemGen uint32) error

	// Run submits one kernel invocation for the given header and blocks
	// until the result buffer (ComputeUnits × 32 bytes) is read back.
	Run(header [80]byte) ([]byte, error)

	Close() error
}

// noWorkPollInterval matches the CPU workers' parked poll cadence.
const noWorkPollInterval = time.Second

// Runner drives one device: it keeps the device's program buffer current,
// sweeps nonces in ComputeUnits strides and scans result buffers for shares.
type Runner struct {
	dev    Device
	index  int
	shared *work.Shared
	queue  *shares.Queue
	seed   *miner.Seed
	logger *zap.Logger

	// Program state loaded on the device. READMEM operands are resolved at
	// assembly time, so the buffer is reloaded whenever the previous block
	// hash or merkle root changes, not only on program-text changes.
	loaded        bool
	loadedProgram string
	loadedPrev    [32]byte
	loadedMerkle  [32]byte
}

// NewRunner creates a runner for device index of the enumerated set.
func NewRunner(dev Device, index int, shared *work.Shared, queue *shares.Queue, seed *miner.Seed, logger *zap.Logger) *Runner {
	return &Runner{
		dev:    dev,
		index:  index,
		shared: shared,
		queue:  queue,
		seed:   seed,
		logger: logger.With(zap.String("device", dev.Name())),
	}
}

// Run waits for the first job and then mines until the context is canceled.
func (r *Runner) Run(ctx context.Context) {
	defer r.dev.Close()

	for r.shared.Num() == 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(noWorkPollInterval):
		}
	}
	for ctx.Err() == nil {
		r.mineJob(ctx)
	}
}

func (r *Runner) mineJob(ctx context.Context) {
	job := r.shared.Clone()

	if !r.loaded || r.loadedProgram != job.ProgramText() ||
		!bytes.Equal(r.loadedPrev[:], job.PrevBlockHash[:]) || !bytes.Equal(r.loadedMerkle[:], job.MerkleRoot[:]) {
		code, largest := Assemble(job.Bytecode, job.PrevBlockHash[:], job.MerkleRoot[:])
		if err := r.dev.LoadProgram(code, largest); err != nil {
			r.logger.Warn("program load failed", zap.Error(err))
			return
		}
		r.loaded = true
		r.loadedProgram = job.ProgramText()
		r.loadedPrev = job.PrevBlockHash
		r.loadedMerkle = job.MerkleRoot
	}

	units := r.dev.ComputeUnits()
	nonce := r.seed.NonceFor(uint32(r.index))
	header := job.NativeData

	for r.shared.Num() == job.Num {
		if ctx.Err() != nil {
			return
		}

		binary.LittleEndian.PutUint32(header[76:80], nonce)
		results, err := r.dev.Run(header)
		if err != nil {
			r.logger.Warn("kernel invocation failed", zap.Error(err))
			return
		}

		for k := 0; k < units; k++ {
			if util.HashPrefix64(results[k*32:]) <= job.ShareTarget {
				var n [4]byte
				binary.LittleEndian.PutUint32(n[:], nonce+uint32(k))
				r.queue.Append(job.Share(n))
			}
		}

		nonce += uint32(units)
		r.queue.Stats.NonceCount.Add(uint64(units))
	}
}
