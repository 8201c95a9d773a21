package miner

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dynamocoin/go-dynminer/internal/shares"
	"github.com/dynamocoin/go-dynminer/internal/work"

	"go.uber.org/zap"
)

func testJob(target uint64) work.Work {
	w := work.Work{ShareTarget: target}
	w.SetProgram("SHA2")
	return w
}

func startWorker(ctx context.Context, shared *work.Shared, queue *shares.Queue) {
	go NewWorker(0, shared, queue, NewSeed(), zap.NewNop()).Run(ctx)
}

func TestWorker_EveryDigestPassesMaxTarget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := &work.Shared{}
	queue := shares.NewQueue()
	gen := shared.Publish(testJob(math.MaxUint64))

	startWorker(ctx, shared, queue)

	select {
	case <-queue.Notify():
	case <-time.After(5 * time.Second):
		t.Fatal("no share with an all-pass target")
	}
	cancel()

	s, ok := queue.Pop()
	if !ok {
		t.Fatal("notified but queue empty")
	}
	if s.JobNum != gen {
		t.Errorf("share generation = %d, want %d", s.JobNum, gen)
	}
	if queue.Stats.NonceCount.Load() == 0 {
		t.Error("nonce counter not incremented")
	}
	if queue.Stats.ShareCount.Load() == 0 {
		t.Error("share counter not incremented")
	}
}

func TestWorker_ZeroTargetEmitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := &work.Shared{}
	queue := shares.NewQueue()
	shared.Publish(testJob(0))

	startWorker(ctx, shared, queue)

	deadline := time.Now().Add(2 * time.Second)
	for queue.Stats.NonceCount.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never started hashing")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if n := queue.Len(); n != 0 {
		t.Errorf("zero target produced %d shares", n)
	}
}

func TestWorker_PreemptedByNewGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := &work.Shared{}
	queue := shares.NewQueue()
	shared.Publish(testJob(0)) // generation 1: unwinnable, keeps the worker spinning

	startWorker(ctx, shared, queue)

	deadline := time.Now().Add(2 * time.Second)
	for queue.Stats.NonceCount.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never started hashing")
		}
		time.Sleep(5 * time.Millisecond)
	}

	gen2 := shared.Publish(testJob(math.MaxUint64))

	select {
	case <-queue.Notify():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the new generation")
	}
	cancel()

	s, ok := queue.Pop()
	if !ok {
		t.Fatal("notified but queue empty")
	}
	if s.JobNum != gen2 {
		t.Errorf("share generation = %d, want %d", s.JobNum, gen2)
	}
}

func TestWorker_ParksUntilFirstJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	shared := &work.Shared{}
	queue := shares.NewQueue()
	startWorker(ctx, shared, queue)

	time.Sleep(50 * time.Millisecond)
	if queue.Stats.NonceCount.Load() != 0 {
		t.Error("worker hashed before any job was published")
	}
	cancel()
}

func TestSeed_DistinctStartingNonces(t *testing.T) {
	seed := NewSeed()
	seen := make(map[uint32]int)
	for i := uint32(0); i < 64; i++ {
		n := seed.NonceFor(i)
		if prev, dup := seen[n]; dup {
			t.Fatalf("workers %d and %d share starting nonce %#x", prev, i, n)
		}
		seen[n] = int(i)
	}
}

func TestSeed_StablePerIndex(t *testing.T) {
	seed := NewSeed()
	if seed.NonceFor(3) != seed.NonceFor(3) {
		t.Error("NonceFor is not stable for a fixed index")
	}
}

func TestMempoolSizeConstant(t *testing.T) {
	// The worker's initial pool matches the 32-cell scratch the miner has
	// always started with; MEMGEN grows it on demand.
	w := NewWorker(0, &work.Shared{}, shares.NewQueue(), NewSeed(), zap.NewNop())
	if w.pool.Cells() != initialMempoolCells {
		t.Errorf("initial pool = %d cells, want %d", w.pool.Cells(), initialMempoolCells)
	}
}
