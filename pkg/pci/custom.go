package pci

// SequenceNumber returns the data or control sequence number, depending on
// PDU type: DT/MGMT carry a data sequence number in the seq-num field
// width; every other type carries a control sequence number in the
// ctrl-seq-num field width. Mirrors pci_sequence_number_get.
func (p *PCI) SequenceNumber() (uint64, error) {
	switch p.Type() {
	case PDUTypeDT, PDUTypeMgmt:
		return p.get(fieldDTMgmtSN, p.table.dt.SeqNumWidth)
	default:
		return p.get(fieldCtrlSN, p.table.dt.CtrlSeqNumWidth)
	}
}

// SequenceNumberSet writes the data or control sequence number, depending
// on the PDU type already stored in the header.
func (p *PCI) SequenceNumberSet(sn uint64) error {
	switch p.Type() {
	case PDUTypeDT, PDUTypeMgmt:
		return p.set(fieldDTMgmtSN, p.table.dt.SeqNumWidth, sn)
	default:
		return p.set(fieldCtrlSN, p.table.dt.CtrlSeqNumWidth, sn)
	}
}

// controlFieldSet names, per PDU type, the field index of a control field
// that exists under different names per PDU type; controlField resolves
// it, returning ErrFieldNotDefined for types that don't carry it.
type controlFieldSet struct {
	ack    fieldIndex
	ackFC  fieldIndex
	fc     fieldIndex
	cack   fieldIndex
	rvous  fieldIndex
	width  func(t *OffsetTable) uint8
}

func (p *PCI) controlGet(op string, fields controlFieldSet) (uint64, error) {
	f, err := p.controlField(fields)
	if err != nil {
		return 0, newFieldError(op, p.Type(), 0, err)
	}
	return p.get(f, fields.width(p.table))
}

func (p *PCI) controlSet(op string, fields controlFieldSet, val uint64) error {
	f, err := p.controlField(fields)
	if err != nil {
		return newFieldError(op, p.Type(), 0, err)
	}
	return p.set(f, fields.width(p.table), val)
}

func (p *PCI) controlField(fields controlFieldSet) (fieldIndex, error) {
	switch p.Type() {
	case PDUTypeACK, PDUTypeNACK:
		if fields.ack < 0 {
			return 0, ErrFieldNotDefined
		}
		return fields.ack, nil
	case PDUTypeACKAndFC, PDUTypeNACKAndFC:
		if fields.ackFC < 0 {
			return 0, ErrFieldNotDefined
		}
		return fields.ackFC, nil
	case PDUTypeFC:
		if fields.fc < 0 {
			return 0, ErrFieldNotDefined
		}
		return fields.fc, nil
	case PDUTypeCACK:
		if fields.cack < 0 {
			return 0, ErrFieldNotDefined
		}
		return fields.cack, nil
	case PDUTypeRendezvous:
		if fields.rvous < 0 {
			return 0, ErrFieldNotDefined
		}
		return fields.rvous, nil
	default:
		return 0, ErrFieldNotDefined
	}
}

const noField fieldIndex = -1

func seqNumWidth(t *OffsetTable) uint8  { return t.dt.SeqNumWidth }
func ctrlSeqWidth(t *OffsetTable) uint8 { return t.dt.CtrlSeqNumWidth }
func rateWidth(t *OffsetTable) uint8    { return t.dt.RateWidth }
func frameWidth(t *OffsetTable) uint8   { return t.dt.FrameWidth }

// ControlAckSeqNum returns the acknowledged sequence number carried by ACK,
// ACK+FC, NACK and NACK+FC PDUs. NACK/NACK+FC reuse the ACK/ACK+FC field,
// carrying the first missing sequence number instead of a last-acked one.
func (p *PCI) ControlAckSeqNum() (uint64, error) {
	return p.controlGet("control_ack_seq_num", controlFieldSet{
		ack: fieldACKAckedSN, ackFC: fieldACKFCAckedSN, fc: noField, cack: noField, rvous: noField,
		width: seqNumWidth,
	})
}

// ControlAckSeqNumSet writes the acknowledged (or, for NACK/NACK+FC, the
// first-missing) sequence number.
func (p *PCI) ControlAckSeqNumSet(seq uint64) error {
	return p.controlSet("control_ack_seq_num_set", controlFieldSet{
		ack: fieldACKAckedSN, ackFC: fieldACKFCAckedSN, fc: noField, cack: noField, rvous: noField,
		width: seqNumWidth,
	}, seq)
}

// ControlNewRightWindowEdge returns the new right-window-edge carried by
// FC, ACK+FC, CACK and RENDEZVOUS PDUs.
func (p *PCI) ControlNewRightWindowEdge() (uint64, error) {
	return p.controlGet("control_new_rt_wind_edge", controlFieldSet{
		ack: noField, ackFC: fieldACKFCNewRWE, fc: fieldFCNewRWE, cack: fieldCACKNewRWE, rvous: fieldRvousNewRWE,
		width: seqNumWidth,
	})
}

// ControlNewRightWindowEdgeSet writes the new right-window-edge.
func (p *PCI) ControlNewRightWindowEdgeSet(seq uint64) error {
	return p.controlSet("control_new_rt_wind_edge_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCNewRWE, fc: fieldFCNewRWE, cack: fieldCACKNewRWE, rvous: fieldRvousNewRWE,
		width: seqNumWidth,
	}, seq)
}

// ControlNewLeftWindowEdge returns the new left-window-edge carried by
// ACK+FC, CACK and RENDEZVOUS PDUs (FC does not carry one).
func (p *PCI) ControlNewLeftWindowEdge() (uint64, error) {
	return p.controlGet("control_new_left_wind_edge", controlFieldSet{
		ack: noField, ackFC: fieldACKFCNewLWE, fc: noField, cack: fieldCACKNewLWE, rvous: fieldRvousNewLWE,
		width: seqNumWidth,
	})
}

// ControlNewLeftWindowEdgeSet writes the new left-window-edge.
func (p *PCI) ControlNewLeftWindowEdgeSet(seq uint64) error {
	return p.controlSet("control_new_left_wind_edge_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCNewLWE, fc: noField, cack: fieldCACKNewLWE, rvous: fieldRvousNewLWE,
		width: seqNumWidth,
	}, seq)
}

// ControlMyRightWindowEdge returns the sender's own right-window-edge,
// carried by FC, ACK+FC, CACK and RENDEZVOUS PDUs.
func (p *PCI) ControlMyRightWindowEdge() (uint64, error) {
	return p.controlGet("control_my_rt_wind_edge", controlFieldSet{
		ack: noField, ackFC: fieldACKFCMyRWE, fc: fieldFCMyRWE, cack: fieldCACKMyRWE, rvous: fieldRvousMyRWE,
		width: seqNumWidth,
	})
}

// ControlMyRightWindowEdgeSet writes the sender's own right-window-edge.
func (p *PCI) ControlMyRightWindowEdgeSet(seq uint64) error {
	return p.controlSet("control_my_rt_wind_edge_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCMyRWE, fc: fieldFCMyRWE, cack: fieldCACKMyRWE, rvous: fieldRvousMyRWE,
		width: seqNumWidth,
	}, seq)
}

// ControlMyLeftWindowEdge returns the sender's own left-window-edge,
// carried by FC, ACK+FC, CACK and RENDEZVOUS PDUs.
func (p *PCI) ControlMyLeftWindowEdge() (uint64, error) {
	return p.controlGet("control_my_left_wind_edge", controlFieldSet{
		ack: noField, ackFC: fieldACKFCMyLWE, fc: fieldFCMyLWE, cack: fieldCACKMyLWE, rvous: fieldRvousMyLWE,
		width: seqNumWidth,
	})
}

// ControlMyLeftWindowEdgeSet writes the sender's own left-window-edge.
func (p *PCI) ControlMyLeftWindowEdgeSet(seq uint64) error {
	return p.controlSet("control_my_left_wind_edge_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCMyLWE, fc: fieldFCMyLWE, cack: fieldCACKMyLWE, rvous: fieldRvousMyLWE,
		width: seqNumWidth,
	}, seq)
}

// ControlLastSeqNumRcvd returns the last control sequence number received,
// carried by ACK+FC, CACK and RENDEZVOUS PDUs.
func (p *PCI) ControlLastSeqNumRcvd() (uint64, error) {
	return p.controlGet("control_last_seq_num_rcvd", controlFieldSet{
		ack: noField, ackFC: fieldACKFCLastCSNRcvd, fc: noField, cack: fieldCACKLastCSNRcvd, rvous: fieldRvousLastCSNRcvd,
		width: ctrlSeqWidth,
	})
}

// ControlLastSeqNumRcvdSet writes the last control sequence number
// received.
func (p *PCI) ControlLastSeqNumRcvdSet(seq uint64) error {
	return p.controlSet("control_last_seq_num_rcvd_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCLastCSNRcvd, fc: noField, cack: fieldCACKLastCSNRcvd, rvous: fieldRvousLastCSNRcvd,
		width: ctrlSeqWidth,
	}, seq)
}

// ControlSndrRate returns the rate-based flow control sending rate,
// carried by FC, ACK+FC, CACK and RENDEZVOUS PDUs. Returns 0 (not an
// error) for PDU types that don't carry it, matching pci_control_sndr_rate.
func (p *PCI) ControlSndrRate() uint64 {
	v, err := p.controlGet("control_sndr_rate", controlFieldSet{
		ack: noField, ackFC: fieldACKFCSndrRate, fc: fieldFCSndrRate, cack: fieldCACKSndrRate, rvous: fieldRvousSndrRate,
		width: rateWidth,
	})
	if err != nil {
		return 0
	}
	return v
}

// ControlSndrRateSet writes the rate-based flow control sending rate.
func (p *PCI) ControlSndrRateSet(rate uint64) error {
	return p.controlSet("control_sndr_rate_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCSndrRate, fc: fieldFCSndrRate, cack: fieldCACKSndrRate, rvous: fieldRvousSndrRate,
		width: rateWidth,
	}, rate)
}

// ControlTimeFrame returns the rate-based flow control time frame in
// milliseconds, carried by FC, ACK+FC, and CACK PDUs (not RENDEZVOUS).
// Returns 0 (not an error) for PDU types that don't carry it.
func (p *PCI) ControlTimeFrame() uint64 {
	v, err := p.controlGet("control_time_frame", controlFieldSet{
		ack: noField, ackFC: fieldACKFCTimeFrame, fc: fieldFCTimeFrame, cack: fieldCACKTimeFrame, rvous: noField,
		width: frameWidth,
	})
	if err != nil {
		return 0
	}
	return v
}

// ControlTimeFrameSet writes the rate-based flow control time frame.
func (p *PCI) ControlTimeFrameSet(frame uint64) error {
	return p.controlSet("control_time_frame_set", controlFieldSet{
		ack: noField, ackFC: fieldACKFCTimeFrame, fc: fieldFCTimeFrame, cack: fieldCACKTimeFrame, rvous: noField,
		width: frameWidth,
	}, frame)
}
