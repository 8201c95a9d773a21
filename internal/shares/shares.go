// Package shares holds found shares between the workers that produce them
// and the stratum submitter that drains them, plus the process-wide mining
// counters.
package shares

import (
	"sync"
	"sync/atomic"
)

// Share is a candidate nonce whose digest met the share target. Nonce holds
// the 4 bytes exactly as they reside in the header (little-endian).
type Share struct {
	JobNum   uint32
	JobID    string
	HexNtime string
	Nonce    [4]byte
}

// Stats are the mining counters. All fields are independently atomic with
// relaxed semantics; exact cross-counter consistency is not required.
type Stats struct {
	NonceCount         atomic.Uint64
	ShareCount         atomic.Uint64
	AcceptedShareCount atomic.Uint32
	RejectedShareCount atomic.Uint32
	LatestDiff         atomic.Uint32
}

// Queue is a multi-producer single-consumer queue of found shares. Producers
// append; the single consumer waits on Notify and drains with Pop.
type Queue struct {
	mu      sync.Mutex
	pending []Share
	notify  chan struct{}

	Stats Stats
}

// NewQueue creates an empty share queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Append pushes a share, bumps the share counter and wakes the consumer.
func (q *Queue) Append(s Share) {
	q.mu.Lock()
	q.pending = append(q.pending, s)
	q.mu.Unlock()

	q.Stats.ShareCount.Add(1)

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes the oldest share. The second return is false when empty.
func (q *Queue) Pop() (Share, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Share{}, false
	}
	s := q.pending[0]
	q.pending = q.pending[1:]
	return s, true
}

// Notify returns the channel the consumer blocks on. The channel carries a
// binary flag: one wake may cover several queued shares, so the consumer
// must drain with Pop until empty.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Len reports the number of queued shares.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
