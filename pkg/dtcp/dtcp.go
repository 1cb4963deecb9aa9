// Package dtcp implements the Data Transfer Control Protocol: control
// PDU generation and dispatch, the retransmission and closed-window
// queues, and an RTT estimator, operating alongside a connection's DTP
// instance per spec §4.6.
package dtcp

import (
	"sync"

	"github.com/rina-go/rinad/pkg/connection"
	"github.com/rina-go/rinad/pkg/dtconst"
	"github.com/rina-go/rinad/pkg/du"
	"github.com/rina-go/rinad/pkg/metrics"
	"github.com/rina-go/rinad/pkg/pci"
)

// Config mirrors the subset of dtcp_config the Go port exercises: the
// knobs spec §4.6 names explicitly.
type Config struct {
	FlowControl        bool
	RtxControl         bool
	WindowBased        bool
	RateBased          bool
	InitialCredit      uint64
	DataRetransmitMax  int
	RendezvousDisabled bool

	// CWQCapacity bounds the closed-window queue; <= 0 uses a default
	// (spec §3's "CWQ/RTXQ caps" config knob).
	CWQCapacity int
}

// Action is what DTP (or EFCP) should do after CommonRcvControl
// processes an incoming control PDU.
type Action struct {
	// DrainCWQ holds DUs released from the closed-window queue because
	// a FC PDU just re-opened the window; the caller hands these to
	// RMT (push_pdus_rmt in the source).
	DrainCWQ []*du.DU

	// Retransmit holds DUs the peer NACKed; the caller re-sends these
	// via RMT. DTCP.TrTimerExpire reports the same kind of list on a
	// tr-timer expiry (DTP's own timer, not a received PDU), just
	// outside CommonRcvControl's PDU-dispatch path.
	Retransmit []*du.DU

	// CancelRendezvous reports whether an FC PDU arrived and any
	// rendezvous-at-sender timer should be stopped.
	CancelRendezvous bool
}

// DTCP is the control-protocol half of a connection's EFCP instance.
type DTCP struct {
	mu sync.Mutex

	conn  *connection.Connection
	dt    *dtconst.DataTransferConstants
	table *pci.OffsetTable
	cfg   Config

	nextSndCtlSeq uint64
	lastRcvCtlSeq uint64
	dupByType     map[pci.PDUType]uint64

	senderLeftWindowEdge  uint64
	senderRightWindowEdge uint64
	rcvrRightWindowEdge   uint64

	cwq  *CWQueue
	rtxq *RTXQueue
	rtt  *RTTEstimator

	metrics metrics.DTCPMetrics
}

// SetMetrics attaches a DTCPMetrics collector; nil disables collection.
func (d *DTCP) SetMetrics(m metrics.DTCPMetrics) {
	d.mu.Lock()
	d.metrics = m
	d.mu.Unlock()
}

func (d *DTCP) cepID() int32 {
	return int32(d.conn.SourceCEPID)
}

// New creates a DTCP instance bound to conn, using dt/table to build
// and parse control PDUs.
func New(conn *connection.Connection, dt *dtconst.DataTransferConstants, table *pci.OffsetTable, cfg Config) *DTCP {
	d := &DTCP{
		conn:                  conn,
		dt:                    dt,
		table:                 table,
		cfg:                   cfg,
		dupByType:             make(map[pci.PDUType]uint64),
		senderRightWindowEdge: cfg.InitialCredit,
		rcvrRightWindowEdge:   cfg.InitialCredit,
		cwq:                   NewCWQueue(cwqCapacity(cfg.CWQCapacity)),
		rtt:                   NewRTTEstimator(),
	}
	if cfg.RtxControl {
		maxRetries := cfg.DataRetransmitMax
		if maxRetries <= 0 {
			maxRetries = 5
		}
		d.rtxq = NewRTXQueue(maxRetries)
	}
	return d
}

// cwqCapacity applies the default closed-window queue bound when the
// config leaves it unset, the same "<=0 means default" convention
// DataRetransmitMax uses above.
func cwqCapacity(configured int) int {
	if configured > 0 {
		return configured
	}
	return 64
}

// nextControlSeq advances and returns the next control sequence
// number, mirroring next_snd_ctl_seq under sv_lock.
func (d *DTCP) nextControlSeq() uint64 {
	d.nextSndCtlSeq++
	return d.nextSndCtlSeq
}

// GenerateControlPDU builds a control PDU of pduType, stamping it with
// a fresh control sequence number and the last control sequence
// received (so the peer can detect its own duplicates), mirroring
// dtcp's control-PDU generation path in spec §4.6. lwe is the receiver's
// current left-window-edge (DTP's receive state); it populates the
// acked-sequence-number field the way populate_ctrl_pci does: ACK/ACK+FC
// ack lwe itself, NACK/NACK+FC ack lwe+1 (the first sequence number still
// missing), per spec §4.3. Types that carry no such field (FC, CACK,
// RENDEZVOUS) ignore lwe.
func (d *DTCP) GenerateControlPDU(pduType pci.PDUType, lwe uint64) (*du.DU, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pdu, err := du.CreateEFCP(pduType, d.dt, d.table)
	if err != nil {
		return nil, err
	}
	p := pdu.PCI()
	if err := p.Format(
		uint64(d.conn.SourceCEPID), uint64(d.conn.DestinationCEPID),
		d.conn.SourceAddress, d.conn.DestinationAddress,
		d.nextControlSeq(), d.conn.QosID, 0, pdu.Len(), pduType,
	); err != nil {
		return nil, err
	}
	if err := p.ControlLastSeqNumRcvdSet(d.lastRcvCtlSeq); err != nil {
		return nil, err
	}

	switch pduType {
	case pci.PDUTypeACK, pci.PDUTypeACKAndFC:
		if err := p.ControlAckSeqNumSet(lwe); err != nil {
			return nil, err
		}
	case pci.PDUTypeNACK, pci.PDUTypeNACKAndFC:
		if err := p.ControlAckSeqNumSet(lwe + 1); err != nil {
			return nil, err
		}
	}

	if pduType == pci.PDUTypeRendezvous && d.metrics != nil {
		d.metrics.RecordRendezvous(d.cepID())
	}
	return pdu, nil
}

// SenderAck discards entries up to seq from the retransmission queue
// and folds an RTT sample in if rttMs is non-zero, mirroring sender_ack
// feeding the RTT estimator from the ACK path.
func (d *DTCP) SenderAck(seq uint64, rttMs uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rtxq != nil {
		d.rtxq.Ack(seq)
	}
	if rttMs > 0 {
		d.rtt.Sample(rttMs)
	}
}

// UpdateSenderWindow applies a peer-advertised new-right-window-edge,
// mirroring the sender-side effect of an FC/ACK+FC PDU: the sender's
// credit grows, and the closed-window queue is drained as far as the
// new credit allows.
func (d *DTCP) UpdateSenderWindow(newRightWindowEdge uint64) []*du.DU {
	d.mu.Lock()
	defer d.mu.Unlock()
	if newRightWindowEdge <= d.senderRightWindowEdge {
		return nil
	}
	credit := int(newRightWindowEdge - d.senderRightWindowEdge)
	d.senderRightWindowEdge = newRightWindowEdge
	delivered := d.cwq.Deliver(credit)
	if d.metrics != nil {
		d.metrics.RecordWindowUpdate(d.cepID(), d.senderLeftWindowEdge, newRightWindowEdge)
		d.metrics.RecordCWQDepth(d.cepID(), d.cwq.Size())
	}
	return delivered
}

// PushCWQ enqueues a DU the sender couldn't transmit because its
// window was closed, mirroring cwq_push from DTP's send path. It
// reports false when the queue is already at its configured capacity
// instead of growing it further, the backpressure signal DTP's send
// path uses to either block or return "try again" per spec §5's
// unbounded-growth prohibition.
func (d *DTCP) PushCWQ(pdu *du.DU) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ok := d.cwq.Push(pdu)
	if d.metrics != nil {
		d.metrics.RecordCWQDepth(d.cepID(), d.cwq.Size())
		d.metrics.RecordBackpressure(d.cepID(), false)
	}
	return ok
}

// CWQSpace returns a channel that closes the next time the
// closed-window queue frees space, letting a blocking sender wait
// without holding DTCP's own lock across the wait.
func (d *DTCP) CWQSpace() <-chan struct{} {
	return d.cwq.NotFull()
}

// SenderWindowOpen reports whether seqNum is within the sender's
// current credit, the window-based flow-control admission check DTP's
// send path consults before handing a PDU to RMT.
func (d *DTCP) SenderWindowOpen(seqNum uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.cfg.WindowBased {
		return true
	}
	return seqNum <= d.senderRightWindowEdge
}

// PushRTX records a newly sent data PDU in the retransmission queue.
func (d *DTCP) PushRTX(seq uint64, pdu *du.DU) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rtxq != nil {
		d.rtxq.Push(seq, pdu)
		if d.metrics != nil {
			d.metrics.RecordRTXQDepth(d.cepID(), d.rtxq.Size())
		}
	}
}

// CommonRcvControl implements dtcp_common_rcv_control: duplicate/gap
// detection against last_rcv_ctl_seq, then dispatch on PDU type.
func (d *DTCP) CommonRcvControl(p *pci.PCI) (Action, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pduType := p.Type()
	seq, err := p.SequenceNumber()
	if err != nil {
		return Action{}, err
	}

	if seq <= d.lastRcvCtlSeq {
		d.dupByType[pduType]++
		return Action{}, ErrDuplicateControl
	}
	// A gap beyond +1 invokes the lost_control_pdu policy in the
	// source; the default policy is to accept and move the window
	// forward anyway, which this port adopts (no policy plugin layer).
	d.lastRcvCtlSeq = seq

	var action Action
	switch pduType {
	case pci.PDUTypeACK:
		ackSeq, err := p.ControlAckSeqNum()
		if err != nil {
			return Action{}, err
		}
		d.ackLocked(ackSeq)

	case pci.PDUTypeFC:
		action.DrainCWQ = d.fcLocked(p)
		action.CancelRendezvous = true

	case pci.PDUTypeACKAndFC:
		ackSeq, err := p.ControlAckSeqNum()
		if err != nil {
			return Action{}, err
		}
		d.ackLocked(ackSeq)
		action.DrainCWQ = d.fcLocked(p)
		action.CancelRendezvous = true

	case pci.PDUTypeCACK:
		newLeft, err := p.ControlNewLeftWindowEdge()
		if err != nil {
			return Action{}, err
		}
		if d.rtxq != nil {
			d.rtxq.Ack(newLeft)
		}

	case pci.PDUTypeRendezvous:
		action.DrainCWQ = d.fcLocked(p)

	case pci.PDUTypeNACK:
		ackSeq, err := p.ControlAckSeqNum()
		if err != nil {
			return Action{}, err
		}
		action.Retransmit = d.nackLocked(ackSeq)

	case pci.PDUTypeNACKAndFC:
		ackSeq, err := p.ControlAckSeqNum()
		if err != nil {
			return Action{}, err
		}
		action.Retransmit = d.nackLocked(ackSeq)
		action.DrainCWQ = d.fcLocked(p)
		action.CancelRendezvous = true

	default:
		return Action{}, ErrUnhandledPDUType
	}

	return action, nil
}

func (d *DTCP) ackLocked(seq uint64) {
	if d.rtxq != nil {
		d.rtxq.Ack(seq)
	}
}

func (d *DTCP) fcLocked(p *pci.PCI) []*du.DU {
	newRight, err := p.ControlNewRightWindowEdge()
	if err != nil {
		return nil
	}
	if newRight <= d.senderRightWindowEdge {
		return nil
	}
	credit := int(newRight - d.senderRightWindowEdge)
	d.senderRightWindowEdge = newRight
	delivered := d.cwq.Deliver(credit)
	if d.metrics != nil {
		d.metrics.RecordWindowUpdate(d.cepID(), d.senderLeftWindowEdge, newRight)
		depth := d.cwq.Size()
		d.metrics.RecordCWQDepth(d.cepID(), depth)
		if depth == 0 && len(delivered) > 0 {
			d.metrics.RecordBackpressure(d.cepID(), true)
		}
	}
	return delivered
}

// Nack requests retransmission of every outstanding PDU at or after
// seq, mirroring rtxq_nack from the NACK receive branch.
func (d *DTCP) Nack(seq uint64) []*du.DU {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nackLocked(seq)
}

func (d *DTCP) nackLocked(seq uint64) []*du.DU {
	if d.rtxq == nil {
		return nil
	}
	due := d.rtxq.Nack(seq)
	if d.metrics != nil {
		d.metrics.RecordRTXQDepth(d.cepID(), d.rtxq.Size())
		if len(due) > 0 {
			d.metrics.RecordRetransmission(d.cepID(), len(due))
		}
	}
	return due
}

// TrTimerExpire fires the tr-timer: every outstanding RTXQ entry is due
// for retransmission, mirroring rtxq's tr-timer expiry path (the
// counterpart to a peer NACK rather than one itself). broken reports
// whether any entry exhausted its retry budget, the scenario DTP's
// tr-timer caller uses to mark the flow broken per spec §4.5/S4.
func (d *DTCP) TrTimerExpire() (due []*du.DU, broken bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rtxq == nil {
		return nil, false
	}
	due, broken = d.rtxq.Expire()
	if d.metrics != nil {
		d.metrics.RecordRTXQDepth(d.cepID(), d.rtxq.Size())
		if len(due) > 0 {
			d.metrics.RecordRetransmission(d.cepID(), len(due))
		}
	}
	return due, broken
}

// RTT exposes the estimator for callers (e.g. a tr-timer) that need
// the current RTO.
func (d *DTCP) RTT() *RTTEstimator {
	return d.rtt
}

// DuplicateCount reports how many duplicate control PDUs of pduType
// have been observed, exposed for metrics/tests.
func (d *DTCP) DuplicateCount(pduType pci.PDUType) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dupByType[pduType]
}

// RcvrUpdateWindow advances the receiver's own advertised
// right-window-edge (called by DTP's receive path as it delivers data,
// growing the credit the next FC/ACK+FC PDU will advertise).
func (d *DTCP) RcvrUpdateWindow(newRightWindowEdge uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if newRightWindowEdge > d.rcvrRightWindowEdge {
		d.rcvrRightWindowEdge = newRightWindowEdge
		if d.metrics != nil {
			d.metrics.RecordWindowUpdate(d.cepID(), d.rcvrRightWindowEdge, newRightWindowEdge)
		}
	}
}

// RcvrRightWindowEdge returns the receiver's currently advertised
// window edge, for stamping outgoing FC/ACK+FC PDUs.
func (d *DTCP) RcvrRightWindowEdge() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rcvrRightWindowEdge
}
