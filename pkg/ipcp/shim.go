package ipcp

import (
	"context"
	"sync"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/kfa"
)

// ShimIPCP is a loopback shim: DUWrite on one port-id is delivered
// straight to its bound peer port-id's KFA queue, with no EFCP
// connection, PCI, or sequencing involved — the Go analogue of the
// kernel's shim-loopback IPC process, used for the same-host S1
// loopback path in spec §8.
type ShimIPCP struct {
	name string
	kfa  *kfa.KFA

	mu    sync.RWMutex
	peers map[uint32]uint32 // portID -> peer portID
}

// NewShim creates a loopback shim IPCP bound to the given KFA.
func NewShim(name string, k *kfa.KFA) *ShimIPCP {
	return &ShimIPCP{
		name:  name,
		kfa:   k,
		peers: make(map[uint32]uint32),
	}
}

func (s *ShimIPCP) Name() string { return s.name }
func (s *ShimIPCP) Kind() Kind   { return KindShim }

// MaxSDUSize reports no bound: the loopback shim never frames PCI
// headers, so there is no wire size to stay under.
func (s *ShimIPCP) MaxSDUSize() int { return 0 }

// AssignToDIF is a no-op for a loopback shim: there is no DT profile
// to apply since no EFCP connection ever forms over it.
func (s *ShimIPCP) AssignToDIF(DIFConfig) error { return nil }

// UpdateDIFConfig is likewise a no-op.
func (s *ShimIPCP) UpdateDIFConfig(DIFConfig) error { return nil }

// FlowAllocateRequest pairs portID with peerPortID so subsequent
// DUWrite calls on either side loop through to the other, and marks
// the requesting port-id allocated: a loopback has no real
// request/response delay, so the requester's own side is immediately
// writable.
func (s *ShimIPCP) FlowAllocateRequest(portID uint32, peerPortID uint32) error {
	s.mu.Lock()
	if _, exists := s.peers[portID]; exists {
		s.mu.Unlock()
		return ErrAlreadyBound
	}
	s.peers[portID] = peerPortID
	s.peers[peerPortID] = portID
	s.mu.Unlock()
	_ = s.kfa.SetState(portID, kfa.FlowStateAllocated)
	return nil
}

// FlowAllocateResponse completes the pairing from the responding
// side, marking its port-id allocated; accept=false instead tears down
// whatever FlowAllocateRequest set up.
func (s *ShimIPCP) FlowAllocateResponse(portID uint32, accept bool) error {
	if !accept {
		return s.FlowDeallocate(portID)
	}
	return s.kfa.SetState(portID, kfa.FlowStateAllocated)
}

// FlowDeallocate removes portID's pairing in both directions.
func (s *ShimIPCP) FlowDeallocate(portID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	peer, ok := s.peers[portID]
	if !ok {
		return ErrNotBound
	}
	delete(s.peers, portID)
	delete(s.peers, peer)
	return nil
}

// ApplicationRegister and ApplicationUnregister are no-ops: a
// loopback shim has no registration namespace of its own, matching
// the degenerate shim used purely for same-host flows.
func (s *ShimIPCP) ApplicationRegister(string) error   { return nil }
func (s *ShimIPCP) ApplicationUnregister(string) error { return nil }

// DUWrite is bound as the peer flow's IPCPWriter, so KFA.Write calls
// it with whatever the application wrote on portID; it posts that DU
// straight onto the paired peer port-id's read queue, completing the
// loopback without ever touching EFCP. A loopback never queues, so
// ctx and blocking are unused: the write is always immediate.
func (s *ShimIPCP) DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error {
	s.mu.RLock()
	peer, ok := s.peers[portID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotBound
	}
	return s.kfa.Post(peer, d)
}
