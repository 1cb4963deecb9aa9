// Package kfa implements the Kernel Flow Allocator: port-id reservation,
// the per-port flow record, and the read/write/post paths that move DUs
// between a user-facing flow and the IPCP instance bound to it.
//
// A Flow owns an sdu-ready queue (the Go-native replacement for the
// source's rfifo-backed wait queue): Post enqueues a DU arriving from
// the network for the user to Read, while Write hands a user-submitted
// DU straight down to the bound IPCP's DUWrite, mirroring the source's
// direct ipcp->ops->du_write() call rather than queuing on the way down.
package kfa

import (
	"context"
	"sort"
	"sync"

	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/idalloc"
	"github.com/rina-go/rinad/pkg/metrics"
)

// FlowState mirrors enum flow_state.
type FlowState int32

const (
	FlowStateNull FlowState = iota + 1
	FlowStatePending
	FlowStateAllocated
	FlowStateDeallocated
	FlowStateDisabled
)

// IPCPWriter is the capability a bound IPCP instance exposes to accept
// user-submitted data for a port-id, the Go analogue of
// ipcp_instance_ops.du_write/max_sdu_size.
type IPCPWriter interface {
	DUWrite(ctx context.Context, portID uint32, d *du.DU, blocking bool) error
	MaxSDUSize() int
}

// Flow is the per-port-id flow record: state, the bound IPCP, and the
// queue of DUs arrived from the network and awaiting a user Read.
type Flow struct {
	PortID        uint32
	MsgBoundaries bool

	mu      sync.Mutex
	state   FlowState
	ipcp    IPCPWriter
	ready   chan *du.DU
	closed  chan struct{}
	once    sync.Once
	stateCh chan struct{} // closed and replaced on every setState, wakes ok_write waiters

	// refs pins the flow alive past Destroy while readers/writers/
	// posters are still using it, mirroring ipcp_flow's atomic
	// readers/writers/posters triple.
	refs int

	// ownerID identifies the user-space process this flow was opened
	// on behalf of, used by ProcessFinalised's cleanup-on-exit sweep.
	// Zero means unowned/untracked.
	ownerID uint32
}

func newFlow(portID uint32, ipcp IPCPWriter, msgBoundaries bool, queueDepth int) *Flow {
	return &Flow{
		PortID:        portID,
		MsgBoundaries: msgBoundaries,
		state:         FlowStatePending,
		ipcp:          ipcp,
		ready:         make(chan *du.DU, queueDepth),
		closed:        make(chan struct{}),
		stateCh:       make(chan struct{}),
	}
}

func (f *Flow) markDeallocated() {
	f.setState(FlowStateDeallocated)
	f.once.Do(func() { close(f.closed) })
}

func (f *Flow) setState(s FlowState) {
	f.mu.Lock()
	f.state = s
	woken := f.stateCh
	f.stateCh = make(chan struct{})
	f.mu.Unlock()
	close(woken)
}

// waitWritable blocks until the flow becomes writable, ctx is
// cancelled, or the flow is deallocated, mirroring kfa_flow_sdu_write's
// wait_event_interruptible(wqs->write_wqueue, ok_write(flow)) loop. A
// non-blocking caller instead returns ErrTryAgain the first time the
// flow isn't immediately writable, the -EAGAIN path in the source.
func (f *Flow) waitWritable(ctx context.Context, blocking bool) error {
	for {
		f.mu.Lock()
		state := f.state
		wake := f.stateCh
		f.mu.Unlock()

		if state == FlowStateDeallocated {
			return ErrFlowDeallocated
		}
		if state != FlowStatePending && state != FlowStateDisabled {
			return nil
		}
		if !blocking {
			return ErrTryAgain
		}
		select {
		case <-wake:
		case <-f.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func stateName(s FlowState) string {
	switch s {
	case FlowStateNull:
		return "null"
	case FlowStatePending:
		return "pending"
	case FlowStateAllocated:
		return "allocated"
	case FlowStateDeallocated:
		return "deallocated"
	case FlowStateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) acquire() {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
}

// release decrements refs and reports whether the flow was deallocated
// and has now drained to zero references — the point at which its
// owning KFA should drop it from the port-id map.
func (f *Flow) release() (drained bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs--
	return f.state == FlowStateDeallocated && f.refs <= 0
}

// Readable reports whether a Read would return immediately without
// blocking, the Go analogue of kfa_flow_readable's poll-mask check.
func (f *Flow) Readable() bool {
	return len(f.ready) > 0
}

// KFA is the Kernel Flow Allocator: it owns the port-id space and the
// map from port-id to bound flow.
type KFA struct {
	mu      sync.RWMutex
	pidm    *idalloc.PIDM
	flows   map[uint32]*Flow
	metrics metrics.KFAMetrics
}

// New creates a KFA whose port-id space is sized for portIDWidth bytes.
func New(portIDWidth uint8) *KFA {
	return &KFA{
		pidm:  idalloc.NewPIDM(portIDWidth),
		flows: make(map[uint32]*Flow),
	}
}

// SetMetrics attaches a KFAMetrics collector; passing nil disables
// collection again. Safe to call at any time.
func (k *KFA) SetMetrics(m metrics.KFAMetrics) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.metrics = m
}

// ReservePortID allocates a fresh port-id from the PIDM without binding
// a flow to it yet, mirroring kfa_port_id_reserve.
func (k *KFA) ReservePortID() (uint32, error) {
	id := k.pidm.Allocate()
	if idalloc.IsBad(id) {
		k.mu.RLock()
		m := k.metrics
		k.mu.RUnlock()
		if m != nil {
			m.RecordPortIDExhausted()
		}
		return idalloc.BadID, ErrPortIDExhausted
	}
	k.mu.RLock()
	m := k.metrics
	k.mu.RUnlock()
	if m != nil {
		m.RecordPortIDAllocated()
	}
	return id, nil
}

// ReleasePortID returns a reserved-but-unbound port-id to the PIDM.
func (k *KFA) ReleasePortID(portID uint32) error {
	return k.pidm.Release(portID)
}

// CreateFlow binds a flow to portID, backed by ipcp for outbound writes
// and a queue of queueDepth DUs for inbound posts, mirroring
// kfa_flow_create. The flow starts in FlowStatePending; callers
// transition it to FlowStateAllocated once the allocate-flow handshake
// completes.
func (k *KFA) CreateFlow(portID uint32, ipcp IPCPWriter, msgBoundaries bool, queueDepth int) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.flows[portID]; exists {
		return ErrFlowExists
	}
	k.flows[portID] = newFlow(portID, ipcp, msgBoundaries, queueDepth)
	return nil
}

// Exists reports whether a flow is currently bound to port-id, mirroring
// kfa_flow_exists.
func (k *KFA) Exists(portID uint32) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.flows[portID]
	return ok
}

// SetState transitions the flow bound to portID.
func (k *KFA) SetState(portID uint32, state FlowState) error {
	f, err := k.lookup(portID)
	if err != nil {
		return err
	}
	f.setState(state)
	k.mu.RLock()
	m := k.metrics
	k.mu.RUnlock()
	metrics.ObserveFlowState(m, stateName(state))
	return nil
}

// BindOwner tags the flow bound to portID with ownerID, the
// user-space process it was opened on behalf of, so a later process
// exit can be swept with ProcessFinalised.
func (k *KFA) BindOwner(portID uint32, ownerID uint32) error {
	f, err := k.lookup(portID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.ownerID = ownerID
	f.mu.Unlock()
	return nil
}

// ProcessFinalised deallocates every port-id owned by ownerID,
// mirroring the kernel's cleanup-on-process-exit path: when a
// user-space process holding flows terminates without explicitly
// deallocating them, the owning IPC manager sweeps its port-ids on
// its behalf. Returns the number of flows destroyed.
func (k *KFA) ProcessFinalised(ownerID uint32) int {
	k.mu.RLock()
	var owned []uint32
	for portID, f := range k.flows {
		f.mu.Lock()
		if f.ownerID == ownerID {
			owned = append(owned, portID)
		}
		f.mu.Unlock()
	}
	k.mu.RUnlock()

	for _, portID := range owned {
		_ = k.Destroy(portID)
	}
	m := k.metrics
	if m != nil {
		m.RecordProcessFinalised(len(owned))
	}
	return len(owned)
}

// Readable reports whether port-id has data ready without blocking,
// mirroring kfa_flow_readable.
func (k *KFA) Readable(portID uint32) (bool, error) {
	f, err := k.lookup(portID)
	if err != nil {
		return false, err
	}
	return f.Readable(), nil
}

// Write hands a user-submitted DU down to the bound IPCP, mirroring
// kfa_flow_skb_write/kfa_flow_ub_write. It does not queue once
// writable: the call forwards synchronously to IPCPWriter.DUWrite.
//
// A message-boundary-preserving flow rejects an oversized DU outright
// (-EMSGSIZE in the source). Otherwise, if the flow's window is closed
// (state PENDING or DISABLED), blocking callers sleep until it reopens,
// is deallocated, or ctx is cancelled; non-blocking callers get
// ErrTryAgain immediately, matching the O_NONBLOCK branch of
// kfa_flow_sdu_write.
func (k *KFA) Write(ctx context.Context, portID uint32, d *du.DU, blocking bool) error {
	f, err := k.lookup(portID)
	if err != nil {
		return err
	}
	f.acquire()
	defer k.releaseAndMaybeDrop(portID, f)

	if f.MsgBoundaries {
		if max := f.ipcp.MaxSDUSize(); max > 0 && d.Len() > max {
			return ErrOversizedSDU
		}
	}

	if err := f.waitWritable(ctx, blocking); err != nil {
		return err
	}
	return f.ipcp.DUWrite(ctx, portID, d, blocking)
}

// Post enqueues a DU arrived from the network for the user to Read,
// mirroring the rfifo_push_ni call in kfa's receive path. Post never
// blocks: queueDepth is sized generously at flow creation and a full
// queue indicates a stalled reader, not backpressure to apply here.
func (k *KFA) Post(portID uint32, d *du.DU) error {
	f, err := k.lookup(portID)
	if err != nil {
		return err
	}
	select {
	case f.ready <- d:
	default:
		// Queue full: drop oldest to make room, preserving the most
		// recent arrivals rather than stalling the network path.
		select {
		case <-f.ready:
		default:
		}
		f.ready <- d
	}
	k.mu.RLock()
	m := k.metrics
	k.mu.RUnlock()
	if m != nil {
		m.RecordSDUQueueDepth(int32(portID), len(f.ready))
	}
	return nil
}

// Read blocks until a DU is available, ctx is cancelled, or the flow is
// deallocated with nothing left queued (reported as io.EOF-equivalent:
// a nil DU and nil error), mirroring kfa_flow_du_read's return-0-on-EOF
// contract.
func (k *KFA) Read(ctx context.Context, portID uint32) (*du.DU, error) {
	f, err := k.lookup(portID)
	if err != nil {
		return nil, err
	}
	f.acquire()
	defer k.releaseAndMaybeDrop(portID, f)

	select {
	case d := <-f.ready:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.closed:
		// Deallocated: drain whatever was still queued before
		// reporting EOF, mirroring kfa_flow_du_read's return-0.
		select {
		case d := <-f.ready:
			return d, nil
		default:
			return nil, nil
		}
	}
}

// Destroy marks the flow deallocated. It is dropped from the port-id
// map immediately once no reader/writer currently holds a reference;
// otherwise removal is deferred to whichever Read/Write call releases
// the last reference, mirroring the source's readers/writers/posters
// drain-before-free invariant.
func (k *KFA) Destroy(portID uint32) error {
	f, err := k.lookup(portID)
	if err != nil {
		return err
	}
	f.markDeallocated()

	k.mu.Lock()
	defer k.mu.Unlock()
	f.mu.Lock()
	drained := f.refs <= 0
	f.mu.Unlock()
	if drained {
		delete(k.flows, portID)
	}
	return nil
}

func (k *KFA) releaseAndMaybeDrop(portID uint32, f *Flow) {
	if !f.release() {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if cur, ok := k.flows[portID]; ok && cur == f {
		delete(k.flows, portID)
	}
}

// FlowSnapshot is a read-only view of one flow's state, for control-plane
// introspection (e.g. `rinactl flow list`); it carries no behavior of its
// own and is never consulted by the data path.
type FlowSnapshot struct {
	PortID uint32
	State  FlowState
	Owner  uint32
}

// Snapshot returns a point-in-time view of every live flow, sorted by
// port-id, for control-plane listing.
func (k *KFA) Snapshot() []FlowSnapshot {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]FlowSnapshot, 0, len(k.flows))
	for portID, f := range k.flows {
		f.mu.Lock()
		out = append(out, FlowSnapshot{PortID: portID, State: f.state, Owner: f.ownerID})
		f.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PortID < out[j].PortID })
	return out
}

func (k *KFA) lookup(portID uint32) (*Flow, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	f, ok := k.flows[portID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return f, nil
}
