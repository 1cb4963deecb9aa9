package dtcp

import (
	"sync"

	"github.com/rina-go/rinad/pkg/du"
)

// CWQueue is the closed-window queue: DUs held back while the sender's
// flow-control window is closed, released once the peer's FC PDU opens
// credit again. It is capacity-bounded: spec §5 forbids unbounded
// memory growth on steady-state failure, so Push refuses once full
// instead of growing without limit.
//
// Grounded on original_source/kernel/dtcp.c's cwq_push/cwq_deliver call
// sites (cwq.c proper is not in the retrieval pack); Deliver's
// credit-bounded draining follows spec §4.6's "deliver drains as many
// as credit allows, re-arming flow control".
type CWQueue struct {
	mu       sync.Mutex
	pending  []*du.DU
	capacity int
	notFull  chan struct{} // closed and replaced whenever Deliver frees space
}

// NewCWQueue creates an empty closed-window queue bounded at capacity
// entries. capacity <= 0 leaves it unbounded.
func NewCWQueue(capacity int) *CWQueue {
	return &CWQueue{capacity: capacity, notFull: make(chan struct{})}
}

// Push holds a DU that couldn't be sent because the window was closed,
// reporting false instead of growing past capacity so the caller can
// fall back to a blocking wait or a try-again error.
func (q *CWQueue) Push(d *du.DU) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.pending) >= q.capacity {
		return false
	}
	q.pending = append(q.pending, d)
	return true
}

// Deliver releases up to credit DUs in FIFO order, returning whatever
// it drained; the remainder (if credit was smaller than the queue)
// stays queued. Draining anything wakes callers blocked on NotFull.
func (q *CWQueue) Deliver(credit int) []*du.DU {
	q.mu.Lock()
	if credit <= 0 || len(q.pending) == 0 {
		q.mu.Unlock()
		return nil
	}
	if credit > len(q.pending) {
		credit = len(q.pending)
	}
	out := q.pending[:credit]
	q.pending = q.pending[credit:]
	woken := q.notFull
	q.notFull = make(chan struct{})
	q.mu.Unlock()
	close(woken)
	return out
}

// Size reports how many DUs are currently held.
func (q *CWQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// NotFull returns the channel that closes the next time Deliver frees
// space in the queue, for a blocking Push retry loop to wait on
// without holding the queue's own lock.
func (q *CWQueue) NotFull() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.notFull
}
