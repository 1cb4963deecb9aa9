// Package dtp implements the Data Transfer Protocol state machine: the
// send path (fragment, sequence, window-admit, format, hand to RMT) and
// the receive path (decap, window/gap check, reassemble, deliver),
// plus the A/R/tr timers and rendezvous behavior described in spec
// §4.5.
package dtp

import (
	"context"
	"sync"
	"time"

	"github.com/rina-go/rinad/pkg/connection"
	"github.com/rina-go/rinad/pkg/delimiter"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/dtcp"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/metrics"
	"github.com/rina-go/rinad/pkg/pci"
)

// Sender hands a formatted PDU off to the routing/multiplexing
// collaborator (RMT), the Go analogue of rmt_send.
type Sender func(pdu *du.DU) error

// Deliverer hands a reassembled, in-order user DU up to the owning
// EFCP instance (efcp_enqueue, eventually reaching KFA's Post), the Go
// analogue of dtp's upcall into the IPCP's du_enqueue.
type Deliverer func(payload *du.DU) error

// DisableWrite is called when the sender's window closes and the user
// should be blocked from writing more until it reopens, the Go
// analogue of disable_write/enable_write in spec §4.8.
type DisableWrite func(disabled bool)

// Config bundles the knobs spec §4.5 names: the A-timer threshold and
// whether in-order delivery is required before handing a DU upward.
type Config struct {
	AMillis      uint32
	InOrder      bool
	RAMillis     uint32 // R-timer: bounds total retransmission duration
	RendezvousMs uint32
	TrMillis     uint32 // tr-timer: per-PDU retransmission interval
}

// DTP is one connection's data-transfer state machine.
type DTP struct {
	mu sync.Mutex

	conn  *connection.Connection
	dt    *dtconst.DataTransferConstants
	table *pci.OffsetTable
	delim *delimiter.Delimiter // nil when fragmentation is disabled
	ctrl  *dtcp.DTCP           // nil when DTCP is disabled for this connection

	send         Sender
	deliver      Deliverer
	disableWrite DisableWrite

	cfg Config

	sendSeqNum uint64

	rcvLeftWindowEdge uint64
	maxSeqRcvd        uint64
	outOfOrder        map[uint64]*du.DU

	aTimer   *time.Timer
	rTimer   *time.Timer
	rvTimer  *time.Timer
	trTimer  *time.Timer
	breaking bool // true once the R-timer has fired: connection considered broken

	metrics metrics.DTPMetrics
}

// SetMetrics attaches a DTPMetrics collector; nil disables collection.
func (d *DTP) SetMetrics(m metrics.DTPMetrics) {
	d.mu.Lock()
	d.metrics = m
	d.mu.Unlock()
}

// New creates a DTP instance. delim and ctrl may be nil; send and
// deliver must not be.
func New(conn *connection.Connection, dt *dtconst.DataTransferConstants, table *pci.OffsetTable,
	delim *delimiter.Delimiter, ctrl *dtcp.DTCP, send Sender, deliver Deliverer, disableWrite DisableWrite, cfg Config) *DTP {
	return &DTP{
		conn:              conn,
		dt:                dt,
		table:             table,
		delim:             delim,
		ctrl:              ctrl,
		send:              send,
		deliver:           deliver,
		disableWrite:      disableWrite,
		cfg:               cfg,
		rcvLeftWindowEdge: 1,
		outOfOrder:        make(map[uint64]*du.DU),
	}
}

// Send implements spec §4.5's send path: fragment (if enabled), wrap
// each fragment in a DT PDU, sequence it, consult DTCP's window
// admission, format the PCI, and hand off to RMT. blocking mirrors the
// caller's O_NONBLOCK state (kfa.KFA.Write's own blocking flag,
// threaded all the way down): a blocking Send waits for the
// closed-window queue to free space when it's at capacity; a
// non-blocking Send returns ErrCWQFull immediately instead.
func (d *DTP) Send(ctx context.Context, payload *du.DU, blocking bool) error {
	var fragments []*du.DU
	if d.delim != nil {
		frags, err := d.delim.Fragment(payload)
		if err != nil {
			return err
		}
		fragments = frags
		d.mu.Lock()
		m := d.metrics
		d.mu.Unlock()
		if m != nil && len(frags) > 1 {
			m.RecordFragmentation("fragment", len(frags))
		}
	} else {
		fragments = []*du.DU{payload}
	}

	for _, frag := range fragments {
		if err := d.sendOne(ctx, frag, blocking); err != nil {
			return err
		}
	}
	return nil
}

func (d *DTP) sendOne(ctx context.Context, frag *du.DU, blocking bool) error {
	frag.Configure(d.dt, d.table)
	if err := frag.Encap(pci.PDUTypeDT); err != nil {
		return err
	}

	d.mu.Lock()
	d.sendSeqNum++
	seqNum := d.sendSeqNum
	d.mu.Unlock()

	p := frag.PCI()
	if err := p.Format(
		uint64(d.conn.SourceCEPID), uint64(d.conn.DestinationCEPID),
		d.conn.SourceAddress, d.conn.DestinationAddress,
		seqNum, d.conn.QosID, 0, frag.Len(), pci.PDUTypeDT,
	); err != nil {
		return err
	}

	d.mu.Lock()
	m := d.metrics
	d.mu.Unlock()
	metrics.ObservePDUSent(m, int32(d.conn.SourceCEPID), p.Type().String(), frag.Len())
	if m != nil {
		m.RecordSeqNum(int32(d.conn.SourceCEPID), seqNum)
	}

	if d.ctrl != nil && !d.ctrl.SenderWindowOpen(seqNum) {
		for !d.ctrl.PushCWQ(frag) {
			if !blocking {
				return ErrCWQFull
			}
			wake := d.ctrl.CWQSpace()
			select {
			case <-wake:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if d.disableWrite != nil {
			d.disableWrite(true)
		}
		return nil
	}

	if d.ctrl != nil {
		d.ctrl.PushRTX(seqNum, frag.Dup())
		d.ArmTrTimer(d.retransmitExpired)
	}
	return d.send(frag)
}

// retransmitExpired is the tr-timer's expiry handler: every RTXQ entry
// due for retransmission is re-sent through RMT, and the timer re-arms
// itself for the next round unless the connection just broke (retry
// budget exhausted) or nothing remains outstanding, matching scenario
// S4's "3 retransmissions at ~100ms then flow broken".
func (d *DTP) retransmitExpired() {
	if d.ctrl == nil {
		return
	}
	due, broken := d.ctrl.TrTimerExpire()
	for _, pdu := range due {
		_ = d.send(pdu)
	}
	if broken || len(due) == 0 {
		return
	}
	d.ArmTrTimer(d.retransmitExpired)
}

// Receive implements spec §4.5's receive path for data PDUs. Control
// PDUs are decap'd (so the header is available to the caller) but not
// otherwise processed: Receive returns the decoded PCI alongside
// ErrControlPDU so the caller can route it to the connection's DTCP
// instance without decapping a second time.
func (d *DTP) Receive(raw *du.DU) (*pci.PCI, error) {
	p, err := raw.Decap()
	if err != nil {
		return nil, err
	}
	if p.Type() != pci.PDUTypeDT && p.Type() != pci.PDUTypeMgmt {
		return p, ErrControlPDU
	}

	if !d.conn.HasDestinationCEPID() {
		if srcCEP, err := p.CEPSource(); err == nil && srcCEP != 0 {
			d.conn.DestinationCEPID = uint32(srcCEP)
		}
	}

	seqNum, err := p.SequenceNumber()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	m := d.metrics
	if seqNum < d.rcvLeftWindowEdge {
		d.mu.Unlock()
		metrics.ObservePDUReceived(m, int32(d.conn.SourceCEPID), p.Type().String(), raw.Len())
		return nil, ErrOutOfWindow
	}
	if seqNum > d.maxSeqRcvd {
		d.maxSeqRcvd = seqNum
	}
	if seqNum != d.rcvLeftWindowEdge && m != nil {
		m.RecordGap(int32(d.conn.SourceCEPID), seqNum-d.rcvLeftWindowEdge)
	}
	d.outOfOrder[seqNum] = raw

	var toDeliver []*du.DU
	if d.cfg.InOrder {
		for {
			next, ok := d.outOfOrder[d.rcvLeftWindowEdge]
			if !ok {
				break
			}
			delete(d.outOfOrder, d.rcvLeftWindowEdge)
			toDeliver = append(toDeliver, next)
			d.rcvLeftWindowEdge++
		}
	} else {
		toDeliver = append(toDeliver, raw)
		delete(d.outOfOrder, seqNum)
		if seqNum == d.rcvLeftWindowEdge {
			d.rcvLeftWindowEdge++
		}
	}
	newRightEdge := d.rcvLeftWindowEdge
	d.mu.Unlock()

	metrics.ObservePDUReceived(m, int32(d.conn.SourceCEPID), p.Type().String(), raw.Len())

	if d.ctrl != nil {
		d.ctrl.RcvrUpdateWindow(newRightEdge)
	}

	for _, pdu := range toDeliver {
		payload := pdu.Data()
		out := payload
		if d.delim != nil {
			reassembled, err := d.delim.ProcessUDF(pdu)
			if err != nil {
				return nil, err
			}
			if m != nil && len(reassembled) > 0 {
				m.RecordFragmentation("reassemble", 1)
			}
			for _, r := range reassembled {
				if err := d.deliver(r); err != nil {
					return nil, err
				}
			}
			continue
		}
		userDU := du.Create(len(out))
		copy(userDU.Data(), out)
		if err := d.deliver(userDU); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// ArmATimer schedules fn to run after the configured A-timer duration,
// cancelling any previously armed A-timer first (idempotent re-arming
// per spec §4.5). A-timer of 0 runs fn inline (no batching delay).
func (d *DTP) ArmATimer(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.aTimer != nil {
		d.aTimer.Stop()
	}
	if d.cfg.AMillis == 0 {
		fn()
		return
	}
	d.aTimer = time.AfterFunc(time.Duration(d.cfg.AMillis)*time.Millisecond, fn)
}

// StopATimer cancels a pending A-timer; a no-op if none is armed.
func (d *DTP) StopATimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.aTimer != nil {
		d.aTimer.Stop()
		d.aTimer = nil
	}
}

// ArmRTimer starts the R-timer, which bounds total retransmission
// duration; its expiry marks the connection broken. Re-arming an
// already-running R-timer is a no-op (the R-timer is not meant to
// reset on each retransmission, only on connection setup).
func (d *DTP) ArmRTimer(onExpire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rTimer != nil || d.cfg.RAMillis == 0 {
		return
	}
	d.rTimer = time.AfterFunc(time.Duration(d.cfg.RAMillis)*time.Millisecond, func() {
		d.mu.Lock()
		d.breaking = true
		d.mu.Unlock()
		onExpire()
	})
}

// Broken reports whether the R-timer has fired.
func (d *DTP) Broken() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breaking
}

// ArmRendezvous starts (or re-arms) the rendezvous timer: when no data
// is flowing, fn re-sends FC state periodically until Send or Receive
// activity cancels it, per spec §4.5's Rendezvous behavior.
func (d *DTP) ArmRendezvous(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rvTimer != nil {
		d.rvTimer.Stop()
	}
	if d.cfg.RendezvousMs == 0 {
		return
	}
	d.rvTimer = time.AfterFunc(time.Duration(d.cfg.RendezvousMs)*time.Millisecond, fn)
}

// CancelRendezvous stops a pending rendezvous timer; a no-op if none is
// armed, matching the idempotent-cancellation invariant in spec §4.5.
func (d *DTP) CancelRendezvous() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rvTimer != nil {
		d.rvTimer.Stop()
		d.rvTimer = nil
	}
}

// ArmTrTimer (re)arms the tr-timer, spec §4.5's per-PDU retransmission
// timer: on expiry fn runs to retransmit whatever the RTXQ reports due.
// Re-arming an already-running tr-timer restarts its countdown, the way
// pushing a fresh PDU onto the RTXQ does in the source.
func (d *DTP) ArmTrTimer(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trTimer != nil {
		d.trTimer.Stop()
	}
	if d.cfg.TrMillis == 0 {
		return
	}
	d.trTimer = time.AfterFunc(time.Duration(d.cfg.TrMillis)*time.Millisecond, fn)
}

// StopTrTimer cancels a pending tr-timer; a no-op if none is armed.
func (d *DTP) StopTrTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trTimer != nil {
		d.trTimer.Stop()
		d.trTimer = nil
	}
}

// Drain stops every timer before teardown, mirroring spec §4.5's
// "tearing down a connection drains in-flight timers before freeing
// the state vector".
func (d *DTP) Drain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.aTimer != nil {
		d.aTimer.Stop()
	}
	if d.rTimer != nil {
		d.rTimer.Stop()
	}
	if d.rvTimer != nil {
		d.rvTimer.Stop()
	}
	if d.trTimer != nil {
		d.trTimer.Stop()
	}
}
