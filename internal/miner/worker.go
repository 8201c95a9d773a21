// Package miner runs the CPU mining workers: one per configured hardware
// thread, each sweeping its own slice of the 32-bit nonce space.
package miner

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dynamocoin/go-dynminer/internal/program"
	"github.com/dynamocoin/go-dynminer/internal/shares"
	"github.com/dynamocoin/go-dynminer/internal/work"
	"github.com/dynamocoin/go-dynminer/pkg/util"

	"go.uber.org/zap"
)

// initialMempoolCells sizes a worker's scratch pool before the first MEMGEN.
const initialMempoolCells = 32

// noWorkPollInterval is how long a parked worker sleeps between generation
// polls before the first job arrives.
const noWorkPollInterval = time.Second

// Worker evaluates the current job's hash program across a disjoint nonce
// stride. The scratch mempool is owned exclusively by this worker and
// persists across jobs.
type Worker struct {
	index  int
	shared *work.Shared
	queue  *shares.Queue
	seed   *Seed
	pool   *program.Mempool
	logger *zap.Logger
}

// NewWorker creates the worker with the given index.
func NewWorker(index int, shared *work.Shared, queue *shares.Queue, seed *Seed, logger *zap.Logger) *Worker {
	return &Worker{
		index:  index,
		shared: shared,
		queue:  queue,
		seed:   seed,
		pool:   program.NewMempool(initialMempoolCells),
		logger: logger,
	}
}

// Run pins the worker to its CPU where supported, waits for the first job,
// then mines until the context is canceled. Each job-generation change
// restarts the inner loop with a fresh clone and starting nonce.
func (w *Worker) Run(ctx context.Context) {
	if err := pinToCPU(w.index); err != nil {
		w.logger.Warn("cpu pinning failed", zap.Int("worker", w.index), zap.Error(err))
	}

	if !w.waitForWork(ctx) {
		return
	}
	for ctx.Err() == nil {
		w.mineJob(ctx)
	}
}

// waitForWork parks until the first job is published. Reports false if the
// context was canceled while parked.
func (w *Worker) waitForWork(ctx context.Context) bool {
	for w.shared.Num() == 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(noWorkPollInterval):
		}
	}
	return true
}

// mineJob clones the current work record and sweeps nonces until the shared
// generation moves past the clone's. The nonce wraps freely at 2^32.
func (w *Worker) mineJob(ctx context.Context) {
	job := w.shared.Clone()
	nonce := w.seed.NonceFor(uint32(w.index))

	header := job.NativeData

	for w.shared.Num() == job.Num {
		if ctx.Err() != nil {
			return
		}

		binary.LittleEndian.PutUint32(header[76:80], nonce)
		digest := program.Execute(header[:], job.Bytecode, job.PrevBlockHash[:], job.MerkleRoot[:], w.pool)
		w.queue.Stats.NonceCount.Add(1)

		if util.HashPrefix64(digest[:]) <= job.ShareTarget {
			var n [4]byte
			copy(n[:], header[76:80])
			w.queue.Append(job.Share(n))
		}

		nonce++
	}
}
