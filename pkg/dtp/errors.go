package dtp

import "errors"

var (
	// ErrOutOfWindow indicates an incoming data PDU's sequence number
	// was to the left of rcv_left_window_edge — a duplicate or
	// already-delivered PDU.
	ErrOutOfWindow = errors.New("dtp: pdu sequence left of receive window, dropped")

	// ErrControlPDU indicates Receive was handed a control PDU; callers
	// must route those to DTCP's CommonRcvControl instead.
	ErrControlPDU = errors.New("dtp: pdu carries a control type, route to dtcp")

	// ErrCWQFull indicates a non-blocking Send found the closed-window
	// queue already at capacity while the sender's window was closed;
	// the caller should treat this like kfa.ErrTryAgain.
	ErrCWQFull = errors.New("dtp: closed-window queue full, try again")
)
