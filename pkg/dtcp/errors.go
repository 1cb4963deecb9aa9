package dtcp

import "errors"

var (
	// ErrDuplicateControl indicates a control PDU's sequence number was
	// at or below last_rcv_ctl_seq.
	ErrDuplicateControl = errors.New("dtcp: duplicate control pdu")

	// ErrUnhandledPDUType indicates CommonRcvControl was handed a PDU
	// type it has no dispatch branch for.
	ErrUnhandledPDUType = errors.New("dtcp: unhandled control pdu type")
)
