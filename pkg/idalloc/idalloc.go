// Package idalloc implements the wrap-around identifier allocators used to
// hand out connection-endpoint-ids (CIDM) and port-ids (PIDM): linear
// scans from a "last allocated" cursor, skipping ids currently held,
// wrapping from max back to 1. Zero is reserved as the "bad id" sentinel.
package idalloc

import (
	"sync"

	"github.com/rina-go/rinad/internal/logger"
)

// BadID is the sentinel returned by Allocate when the id-space is
// exhausted, and the value IsBad reports true for. It mirrors the
// kernel's port_id_bad()/cep_id_bad() sentinel of zero.
const BadID uint32 = 0

// IsBad reports whether id is the bad-id sentinel.
func IsBad(id uint32) bool {
	return id == BadID
}

// MaxForWidth returns the largest allocatable id for a field of the given
// byte width: 2^(8*width) - 1.
func MaxForWidth(width uint8) uint32 {
	if width >= 4 {
		return ^uint32(0)
	}
	return (uint32(1) << (8 * width)) - 1
}

// Allocator is a spinlock-serialized wrap-around linear allocator. The
// zero value is not usable; construct with New.
type Allocator struct {
	mu            sync.Mutex
	max           uint32
	lastAllocated uint32
	held          map[uint32]struct{}
}

// New creates an Allocator whose ids range over [1, max].
func New(max uint32) *Allocator {
	return &Allocator{
		max:  max,
		held: make(map[uint32]struct{}),
	}
}

// NewForWidth creates an Allocator sized for a wire field of the given
// byte width.
func NewForWidth(width uint8) *Allocator {
	return New(MaxForWidth(width))
}

// Allocate returns the next free id after last_allocated, wrapping at
// max back to 1, skipping ids currently held. It returns BadID without
// blocking when every id in [1, max] is held.
func (a *Allocator) Allocate() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if uint32(len(a.held)) >= a.max {
		return BadID
	}

	id := a.lastAllocated + 1
	if id > a.max {
		id = 1
	}

	for {
		if _, taken := a.held[id]; !taken {
			break
		}
		id++
		if id > a.max {
			id = 1
		}
	}

	a.held[id] = struct{}{}
	a.lastAllocated = id
	return id
}

// Release returns id to the pool. Releasing an id that was never
// allocated logs a warning but still returns nil, so idempotent release
// from concurrent teardown paths stays safe.
func (a *Allocator) Release(id uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.held[id]; !ok {
		logger.Warn("releasing id that was not allocated", logger.ErrorCode(int(id)))
		return nil
	}
	delete(a.held, id)
	return nil
}

// Held reports whether id is currently allocated.
func (a *Allocator) Held(id uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.held[id]
	return ok
}

// Len returns the number of currently-held ids.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.held)
}
